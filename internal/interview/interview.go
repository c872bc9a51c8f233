// Package interview は narrative コマンドの対話インタビューを担当します。
// 標準入出力に依存せず io.Reader / io.Writer を受け取るため、テストでは
// 文字列バッファで代替できます。
package interview

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter は1問ずつユーザーに質問して回答を読み取ります。
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// New は Prompter を生成します。
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// Ask は自由回答の質問です。def が空でなく回答も空なら def を返します。
// required が真のときは空回答を受け付けず、聞き直します。
func (p *Prompter) Ask(question, def string, required bool) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(p.out, "%s [%s]: ", question, def)
		} else {
			fmt.Fprintf(p.out, "%s: ", question)
		}
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" && def != "" {
			return def, nil
		}
		if answer != "" || !required {
			return answer, nil
		}
		fmt.Fprintln(p.out, "  This field is required. Please provide an answer.")
	}
}

// YesNo は y/n の質問です。空回答は def を返します。
func (p *Prompter) YesNo(question string, def bool) (bool, error) {
	hint := "Y/n"
	if !def {
		hint = "y/N"
	}
	for {
		fmt.Fprintf(p.out, "%s [%s]: ", question, hint)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "  Please enter 'y' or 'n'.")
	}
}

// Choice は番号選択の質問です。選んだ選択肢の添字を返します。
func (p *Prompter) Choice(question string, options []string) (int, error) {
	fmt.Fprintf(p.out, "\n%s\n", question)
	for i, option := range options {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, option)
	}
	for {
		fmt.Fprint(p.out, "Enter number: ")
		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintln(p.out, "  Invalid input. Please enter a number.")
	}
}
