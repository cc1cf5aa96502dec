// loop.go
// Цикл уточнения: генерация кода, запуск, повторная генерация по тексту
// ошибки. Явная машина состояний с двумя лимитами: числом попыток и
// суммарным временем генерации.

package main

import (
	"context"
	"fmt"
	"time"
)

// Инструкция, добавляемая к пользовательскому промпту
const promptInstruction = "Only output Python code. Do not give commentary.\n"

// LoopPhase описывает фазу цикла уточнения
type LoopPhase int

const (
	PhaseGenerating LoopPhase = iota
	PhaseRunning
	PhaseRetrying
	PhaseSucceeded
	PhaseFailedMaxAttempts
	PhaseFailedMaxTime
)

// String возвращает имя фазы
func (p LoopPhase) String() string {
	switch p {
	case PhaseGenerating:
		return "generating"
	case PhaseRunning:
		return "running"
	case PhaseRetrying:
		return "retrying"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailedMaxAttempts:
		return "failed_max_attempts"
	case PhaseFailedMaxTime:
		return "failed_max_time"
	default:
		return "unknown"
	}
}

// Terminal сообщает, завершает ли фаза прогон
func (p LoopPhase) Terminal() bool {
	switch p {
	case PhaseSucceeded, PhaseFailedMaxAttempts, PhaseFailedMaxTime:
		return true
	}
	return false
}

// StopReason кодирует причину остановки прогона
type StopReason int

const (
	StopNone StopReason = iota
	StopSuccess
	StopMaxAttempts
	StopMaxTime
)

func (r StopReason) String() string {
	switch r {
	case StopSuccess:
		return "success"
	case StopMaxAttempts:
		return "max_attempts"
	case StopMaxTime:
		return "max_time"
	default:
		return "none"
	}
}

// Reason возвращает причину остановки для терминальной фазы
func (p LoopPhase) Reason() StopReason {
	switch p {
	case PhaseSucceeded:
		return StopSuccess
	case PhaseFailedMaxAttempts:
		return StopMaxAttempts
	case PhaseFailedMaxTime:
		return StopMaxTime
	default:
		return StopNone
	}
}

// Candidate описывает один сгенерированный и очищенный вариант программы
type Candidate struct {
	Code    string
	GenTime time.Duration
	LOC     int
	Attempt int // нумерация с 1
}

// LoopState хранит состояние одного прогона цикла уточнения
type LoopState struct {
	Phase         LoopPhase
	Attempts      int
	TotalGenTime  time.Duration
	LastCandidate *Candidate
}

// Terminal сообщает, завершен ли прогон
func (s *LoopState) Terminal() bool { return s.Phase.Terminal() }

// Reason возвращает причину завершения прогона
func (s *LoopState) Reason() StopReason { return s.Phase.Reason() }

// CodeGenerator абстрагирует внешний сервис генерации кода
type CodeGenerator interface {
	Generate(ctx context.Context, prompt string) (string, time.Duration, error)
}

// CandidateRunner абстрагирует среду выполнения кандидата
type CandidateRunner interface {
	Run(code string, attempt int) (*ExecutionResult, error)
}

// RefineLoop управляет повторными циклами генерация-запуск
type RefineLoop struct {
	cfg      *Config
	gen      CodeGenerator
	runner   CandidateRunner
	parser   *CodeParser
	reporter *Reporter
	stats    *Statistics
}

// NewRefineLoop создает новый цикл уточнения
func NewRefineLoop(config *Config, gen CodeGenerator, runner CandidateRunner, reporter *Reporter, stats *Statistics) *RefineLoop {
	return &RefineLoop{
		cfg:      config,
		gen:      gen,
		runner:   runner,
		parser:   NewCodeParser(config),
		reporter: reporter,
		stats:    stats,
	}
}

// Run выполняет полный прогон: от начального промпта до терминальной
// фазы. Ошибка означает фатальный сбой генерации либо ввода-вывода;
// «кандидат завершился с ненулевым кодом» ошибкой не является и
// обрабатывается внутри машины состояний.
func (rl *RefineLoop) Run(ctx context.Context, initialPrompt string) (*LoopState, error) {
	state := &LoopState{Phase: PhaseGenerating}
	prompt := initialPrompt

	for {
		select {
		case <-ctx.Done():
			return state, fmt.Errorf("прогон отменен: %w", ctx.Err())
		default:
		}

		// Генерация очередного кандидата
		state.Attempts++
		raw, genTime, err := rl.gen.Generate(ctx, prompt)
		if err != nil {
			return state, fmt.Errorf("генерация кода не удалась: %w", err)
		}

		code, loc := rl.parser.Sanitize(raw, genTime)
		cand := &Candidate{
			Code:    code,
			GenTime: genTime,
			LOC:     loc,
			Attempt: state.Attempts,
		}
		state.LastCandidate = cand
		state.TotalGenTime += genTime

		// Запуск кандидата
		state.Phase = PhaseRunning
		rl.reporter.AttemptStarted(cand)
		res, err := rl.runner.Run(cand.Code, cand.Attempt)
		if err != nil {
			return state, err
		}
		rl.stats.RecordAttempt(cand.Attempt, genTime, loc, res.Succeeded)

		state.Phase = rl.nextPhase(state, res)
		switch state.Phase {
		case PhaseSucceeded:
			rl.reporter.Succeeded(state, cand, res)
			return state, nil
		case PhaseFailedMaxTime:
			rl.reporter.AttemptFailed(cand, res)
			rl.reporter.MaxTimeReached(state)
			return state, nil
		case PhaseFailedMaxAttempts:
			rl.reporter.AttemptFailed(cand, res)
			rl.reporter.MaxAttemptsReached(state)
			return state, nil
		case PhaseRetrying:
			rl.reporter.AttemptFailed(cand, res)
			prompt = buildFixPrompt(cand.Code, res.Stderr)
			state.Phase = PhaseGenerating
		}
	}
}

// nextPhase решает судьбу прогона после запуска. На неудаче сначала
// проверяется бюджет времени (равенство тоже считается превышением),
// и только затем лимит попыток.
func (rl *RefineLoop) nextPhase(state *LoopState, res *ExecutionResult) LoopPhase {
	if res.Succeeded {
		return PhaseSucceeded
	}
	if state.TotalGenTime.Seconds() >= rl.cfg.MaxTime {
		return PhaseFailedMaxTime
	}
	if state.Attempts+1 > rl.cfg.MaxAttempts {
		return PhaseFailedMaxAttempts
	}
	return PhaseRetrying
}

// buildFixPrompt собирает промпт исправления из упавшего кода и ошибки
func buildFixPrompt(code, errText string) string {
	return fmt.Sprintf(
		"The following Python code failed to run: \n```python\n%s\n```\n"+
			"Error: %s\nPlease fix the code and return it in a ```python``` block.",
		code, errText)
}
