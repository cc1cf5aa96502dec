// clipboard.go
package main

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// WriteClipboard записывает текст в буфер обмена.
// Используется опцией copy_code для копирования финального кода.
func WriteClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin": // macOS
		cmd = exec.Command("pbcopy")
	case "windows":
		cmd = exec.Command("powershell", "-command", "Set-Clipboard")
	default: // Linux и другие UNIX-системы
		if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.Command("xclip", "-selection", "clipboard", "-in")
		} else if _, err := exec.LookPath("xsel"); err == nil {
			cmd = exec.Command("xsel", "--clipboard", "--input")
		} else {
			return fmt.Errorf("не найдены команды для работы с буфером обмена (xclip или xsel)")
		}
	}

	cmd.Stdin = strings.NewReader(text)
	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("ошибка записи в буфер обмена: %w", err)
	}

	return nil
}

// CheckClipboardSupport проверяет поддержку буфера обмена в системе
func CheckClipboardSupport() bool {
	switch runtime.GOOS {
	case "darwin":
		_, err := exec.LookPath("pbcopy")
		return err == nil
	case "windows":
		return true // PowerShell всегда доступен в Windows
	default:
		_, err1 := exec.LookPath("xclip")
		_, err2 := exec.LookPath("xsel")
		return err1 == nil || err2 == nil
	}
}
