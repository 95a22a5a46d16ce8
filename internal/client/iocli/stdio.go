package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio реализует IO поверх терминала
type Stdio struct {
	in     *bufio.Reader
	out    io.Writer
	inFile *os.File
}

// NewStdio возвращает IO поверх os.Stdin и os.Stdout
func NewStdio() IO {
	return &Stdio{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		inFile: os.Stdin,
	}
}

// New возвращает IO поверх произвольных потоков; пароль читается как обычная строка
func New(in io.Reader, out io.Writer) IO {
	return &Stdio{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword читает пароль без эха, если stdin терминал,
// иначе (pipe, тесты) читает строку как есть
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if s.inFile == nil || !term.IsTerminal(int(s.inFile.Fd())) {
		s.Printf("%s", prompt)
		input, err := s.in.ReadString('\n')
		if err != nil && (err != io.EOF || input == "") {
			return "", err
		}
		return strings.TrimRight(input, "\r\n"), nil
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(int(s.inFile.Fd()))
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
