// coderunner.go
// Запись кандидата в рабочий файл, архивирование предыдущей попытки
// и запуск через интерпретатор с фиксированным стандартным вводом

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Фиксированная строка стандартного ввода для кандидатов, ожидающих ввод
const candidateStdin = "5\n"

// ExecutionResult описывает исход одного запуска кандидата
type ExecutionResult struct {
	Succeeded bool
	Stdout    string
	Stderr    string
}

// CodeRunner сохраняет код кандидата и выполняет его
type CodeRunner struct {
	cfg *Config
}

// NewCodeRunner создает новый раннер кода
func NewCodeRunner(config *Config) *CodeRunner {
	return &CodeRunner{cfg: config}
}

// Run записывает код в рабочий файл и выполняет его интерпретатором.
// Начиная со второй попытки предыдущая версия файла сперва архивируется
// под именем с числовым суффиксом (foo.py -> foo1.py, foo2.py, ...),
// архив с занятым номером больше не перезаписывается. Ненулевой код
// выхода кандидата не считается ошибкой Run — он отражается в
// ExecutionResult; ошибка возвращается при сбоях ввода-вывода и когда
// интерпретатор не удалось запустить вовсе.
func (cr *CodeRunner) Run(code string, attempt int) (*ExecutionResult, error) {
	if attempt > 1 {
		archive := cr.cfg.ArchiveName(attempt - 1)
		if err := CopyFile(cr.cfg.SourceFile, archive); err != nil {
			return nil, fmt.Errorf("не удалось сохранить архивную копию %s: %w", archive, err)
		}
	}

	if err := os.WriteFile(cr.cfg.SourceFile, []byte(code), 0644); err != nil {
		return nil, fmt.Errorf("не удалось записать код в %s: %w", cr.cfg.SourceFile, err)
	}

	cmd := exec.Command(cr.cfg.Interpreter, cr.cfg.SourceFile)
	cmd.Stdin = strings.NewReader(candidateStdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("не удалось запустить интерпретатор %s: %w", cr.cfg.Interpreter, err)
		}
	}

	return &ExecutionResult{
		Succeeded: err == nil,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
	}, nil
}
