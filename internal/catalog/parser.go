package catalog

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shaiso/sweep/internal/domain"
)

// Parse разбирает step file.
//
// Формат строки:
//   - "weight"    — ID назначается счётчиком (1, 2, ...)
//   - "id weight" — явный ID
//   - пустая строка пропускается
//
// В весе допускается десятичный разделитель "." или ","; разделители
// тысяч не поддерживаются. Счётчик увеличивается на каждой непустой
// строке, в том числе с явным ID.
func Parse(r io.Reader) ([]domain.Step, error) {
	var steps []domain.Step
	seen := make(map[int]int) // id → номер строки
	counter := 0

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())

		var step domain.Step
		switch len(fields) {
		case 0:
			continue

		case 1:
			weight, err := parseWeight(fields[0])
			if err != nil {
				return nil, malformed(lineNo, err.Error())
			}
			counter++
			step = domain.Step{ID: counter, Weight: weight}

		case 2:
			id, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, malformed(lineNo, fmt.Sprintf("invalid step id %q", fields[0]))
			}
			weight, err := parseWeight(fields[1])
			if err != nil {
				return nil, malformed(lineNo, err.Error())
			}
			counter++
			step = domain.Step{ID: id, Weight: weight}

		default:
			return nil, malformed(lineNo, fmt.Sprintf("expected 1 or 2 tokens, got %d", len(fields)))
		}

		if first, dup := seen[step.ID]; dup {
			return nil, &ParseError{
				Line: lineNo,
				Msg:  fmt.Sprintf("step id %d already defined on line %d", step.ID, first),
				Err:  ErrDuplicateStepID,
			}
		}
		seen[step.ID] = lineNo
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read step file: %w", err)
	}

	return steps, nil
}

// parseWeight принимает "." и "," как десятичный разделитель.
// NaN и бесконечности не являются частотами.
func parseWeight(token string) (float64, error) {
	w, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", "."), 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, fmt.Errorf("invalid weight %q", token)
	}
	return w, nil
}

func malformed(line int, msg string) *ParseError {
	return &ParseError{Line: line, Msg: msg, Err: ErrMalformedStepFile}
}
