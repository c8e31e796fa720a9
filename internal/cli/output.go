package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shaiso/sweep/internal/domain"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Progress выводит прогресс запуска таблицей по проектам.
func (o *Output) Progress(p *domain.Progress) {
	if o.jsonMode {
		o.JSON(p)
		return
	}
	if p.Admission != "" {
		fmt.Fprintf(o.w, "admission: %s, concurrency: %d\n", p.Admission, p.Concurrency)
	}
	headers := []string{"PROJECT", "STATUS", "TOTAL", "PENDING", "LAUNCHED", "SKIPPED", "ERROR"}
	rows := make([][]string, len(p.Projects))
	for i, pp := range p.Projects {
		rows[i] = []string{
			pp.Name,
			string(pp.Status),
			strconv.Itoa(pp.TotalSteps),
			strconv.Itoa(pp.Pending),
			strconv.Itoa(pp.Launched),
			strconv.Itoa(pp.Skipped),
			pp.Error,
		}
	}
	o.Table(headers, rows)
}

// Event выводит одно событие строкой (или JSON-объектом на строку).
func (o *Output) Event(e domain.Event) {
	if o.jsonMode {
		data, _ := json.Marshal(e)
		fmt.Fprintln(o.w, string(data))
		return
	}
	line := e.Timestamp.Format(time.TimeOnly) + "  " + string(e.Type)
	if e.Project != "" {
		line += "  project=" + e.Project
	}
	if e.StepID != 0 {
		line += "  step=" + strconv.Itoa(e.StepID)
	}
	if e.PID != 0 {
		line += "  pid=" + strconv.Itoa(e.PID)
	}
	if e.Message != "" {
		line += "  " + e.Message
	}
	fmt.Fprintln(o.w, line)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
