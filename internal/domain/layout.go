package domain

import (
	"strconv"
	"strings"
)

// Layout — имена артефактов проекта.
//
// Значения по умолчанию совпадают с соглашениями Elmer scanning проектов.
type Layout struct {
	// StepFile — файл с определением шагов (одна частота на строку).
	StepFile string `yaml:"step_file"`

	// Template — шаблон конфигурации solver'а.
	Template string `yaml:"template"`

	// Mesh — артефакт сетки, обязателен для валидного проекта.
	Mesh string `yaml:"mesh"`

	// GeneratedConfig — общий сгенерированный файл конфигурации (shared mode).
	GeneratedConfig string `yaml:"generated_config"`

	// StartInfo — файл, указывающий worker'у на GeneratedConfig (shared mode).
	StartInfo string `yaml:"start_info"`

	// MarkerPrefix и MarkerSuffix задают имя result marker: <prefix><id><suffix>.
	MarkerPrefix string `yaml:"marker_prefix"`
	MarkerSuffix string `yaml:"marker_suffix"`

	// LogPrefix и LogSuffix задают имя лога шага: <prefix><id><suffix>.
	LogPrefix string `yaml:"log_prefix"`
	LogSuffix string `yaml:"log_suffix"`

	// HeaderSuffix — суффикс вспомогательных header-файлов, удаляемых при cleanup.
	HeaderSuffix string `yaml:"header_suffix"`
}

// DefaultLayout возвращает стандартные имена артефактов.
func DefaultLayout() Layout {
	return Layout{
		StepFile:        "Scanning_FREQUNCIES.txt",
		Template:        "Scanning_case.sif",
		Mesh:            "mesh.elements",
		GeneratedConfig: "case.sif",
		StartInfo:       "ELMERSOLVER_STARTINFO",
		MarkerPrefix:    "case_frequency_",
		MarkerSuffix:    ".csv",
		LogPrefix:       "case_t",
		LogSuffix:       "_log.txt",
		HeaderSuffix:    ".csv.names",
	}
}

// MarkerName возвращает имя result marker для шага.
func (l Layout) MarkerName(stepID int) string {
	return l.MarkerPrefix + strconv.Itoa(stepID) + l.MarkerSuffix
}

// ParseMarker извлекает ID шага из имени файла.
// Возвращает false, если имя не является marker'ом.
func (l Layout) ParseMarker(name string) (int, bool) {
	if !strings.HasPrefix(name, l.MarkerPrefix) || !strings.HasSuffix(name, l.MarkerSuffix) {
		return 0, false
	}
	if len(name) <= len(l.MarkerPrefix)+len(l.MarkerSuffix) {
		return 0, false
	}
	id, err := strconv.Atoi(name[len(l.MarkerPrefix) : len(name)-len(l.MarkerSuffix)])
	if err != nil {
		return 0, false
	}
	return id, true
}

// LogName возвращает имя лог-файла шага.
func (l Layout) LogName(stepID int) string {
	return l.LogPrefix + strconv.Itoa(stepID) + l.LogSuffix
}

// StepConfigName возвращает имя per-step конфигурации: "case.sif" → "case_12.sif".
func (l Layout) StepConfigName(stepID int) string {
	base := l.GeneratedConfig
	ext := ""
	if i := strings.LastIndex(base, "."); i > 0 {
		base, ext = base[:i], base[i:]
	}
	return base + "_" + strconv.Itoa(stepID) + ext
}

// IsStepConfig проверяет, является ли имя per-step конфигурацией.
func (l Layout) IsStepConfig(name string) bool {
	base := l.GeneratedConfig
	ext := ""
	if i := strings.LastIndex(base, "."); i > 0 {
		base, ext = base[:i], base[i:]
	}
	prefix := base + "_"
	if len(name) < len(prefix)+len(ext) || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
		return false
	}
	_, err := strconv.Atoi(name[len(prefix) : len(name)-len(ext)])
	return err == nil
}

// IsHeader проверяет, является ли имя вспомогательным header-файлом.
func (l Layout) IsHeader(name string) bool {
	return strings.HasPrefix(name, l.MarkerPrefix) && strings.HasSuffix(name, l.HeaderSuffix)
}

// Required возвращает обязательные артефакты проекта.
func (l Layout) Required() []string {
	return []string{l.Template, l.StepFile, l.Mesh}
}
