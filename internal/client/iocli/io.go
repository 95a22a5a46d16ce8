// Package iocli is the terminal I/O used by authctl commands.
package iocli

// IO абстракция ввода-вывода команд, подменяется в тестах
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
