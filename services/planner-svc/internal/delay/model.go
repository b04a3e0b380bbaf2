package delay

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"skypath/pkg/apperror"
)

// DefaultRidge - коэффициент регуляризации по умолчанию
const DefaultRidge = 1e-3

// origin, dest, departure, day, weather
const featureCount = 5

// LinearModel - линейная регрессия над закодированными признаками
type LinearModel struct {
	Intercept    float64
	Coefficients []float64

	Origins  LabelEncoder
	Dests    LabelEncoder
	Days     LabelEncoder
	Weathers LabelEncoder
}

// Train обучает модель методом наименьших квадратов с L2 регуляризацией.
// Свободный член не регуляризуется.
func Train(samples []Sample, ridge float64) (*LinearModel, error) {
	if len(samples) == 0 {
		return nil, apperror.New(apperror.CodeDelayModel, "no training samples")
	}
	if ridge < 0 {
		return nil, apperror.New(apperror.CodeDelayModel, "ridge must be non-negative")
	}

	pick := func(fn func(Sample) string) []string {
		out := make([]string, len(samples))
		for i, s := range samples {
			out[i] = fn(s)
		}
		return out
	}

	m := &LinearModel{
		Origins:  FitEncoder("origin", pick(func(s Sample) string { return s.Origin })),
		Dests:    FitEncoder("dest", pick(func(s Sample) string { return s.Dest })),
		Days:     FitEncoder("day", pick(func(s Sample) string { return s.Day })),
		Weathers: FitEncoder("weather", pick(func(s Sample) string { return s.Weather })),
	}

	const n = featureCount + 1
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
	}
	b := make([]float64, n)

	for _, s := range samples {
		x, err := m.row(s.Features)
		if err != nil {
			return nil, err
		}
		for i := range n {
			for j := range n {
				a[i][j] += x[i] * x[j]
			}
			b[i] += x[i] * s.DelayMinutes
		}
	}
	for i := 1; i < n; i++ {
		a[i][i] += ridge
	}

	beta, err := solve(a, b)
	if err != nil {
		return nil, err
	}

	m.Intercept = beta[0]
	m.Coefficients = beta[1:]
	return m, nil
}

// Predict возвращает прогноз задержки в минутах. Отрицательный прогноз обрезается до 0.
func (m *LinearModel) Predict(f Features) (float64, error) {
	if len(m.Coefficients) != featureCount {
		return 0, apperror.Newf(apperror.CodeDelayModel, "model has %d coefficients, want %d", len(m.Coefficients), featureCount)
	}

	x, err := m.row(f)
	if err != nil {
		return 0, err
	}

	y := m.Intercept
	for i, c := range m.Coefficients {
		y += c * x[i+1]
	}
	if y < 0 || math.IsNaN(y) {
		return 0, nil
	}
	return y, nil
}

func (m *LinearModel) row(f Features) ([]float64, error) {
	x := make([]float64, featureCount+1)
	var err error

	x[0] = 1
	if x[1], err = m.Origins.Transform(f.Origin); err != nil {
		return nil, err
	}
	if x[2], err = m.Dests.Transform(f.Dest); err != nil {
		return nil, err
	}
	x[3] = f.Departure
	if x[4], err = m.Days.Transform(f.Day); err != nil {
		return nil, err
	}
	if x[5], err = m.Weathers.Transform(f.Weather); err != nil {
		return nil, err
	}
	return x, nil
}

// solve решает a·x = b методом Гаусса с выбором главного элемента. a и b изменяются.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for c := range n {
		p := c
		for r := c + 1; r < n; r++ {
			if math.Abs(a[r][c]) > math.Abs(a[p][c]) {
				p = r
			}
		}
		if math.Abs(a[p][c]) < 1e-12 {
			return nil, apperror.New(apperror.CodeDelayModel, "training system is singular, increase ridge")
		}
		a[c], a[p] = a[p], a[c]
		b[c], b[p] = b[p], b[c]

		for r := c + 1; r < n; r++ {
			f := a[r][c] / a[c][c]
			for k := c; k < n; k++ {
				a[r][k] -= f * a[c][k]
			}
			b[r] -= f * b[c]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		s := b[r]
		for k := r + 1; k < n; k++ {
			s -= a[r][k] * x[k]
		}
		x[r] = s / a[r][r]
	}
	return x, nil
}

// modelFile - YAML представление модели:
//
//	intercept: 9.05
//	coefficients: [8.9, -1.6, -2.2, -0.03, 12.0]
//	classes:
//	  origin: [A, B, C, D]
type modelFile struct {
	Intercept    float64   `koanf:"intercept"`
	Coefficients []float64 `koanf:"coefficients"`
	Classes      struct {
		Origin  []string `koanf:"origin"`
		Dest    []string `koanf:"dest"`
		Day     []string `koanf:"day"`
		Weather []string `koanf:"weather"`
	} `koanf:"classes"`
}

// Marshal сериализует модель в YAML
func (m *LinearModel) Marshal() ([]byte, error) {
	k := koanf.New(".")
	err := k.Load(confmap.Provider(map[string]any{
		"intercept":    m.Intercept,
		"coefficients": m.Coefficients,
		"classes": map[string]any{
			"origin":  m.Origins.Classes,
			"dest":    m.Dests.Classes,
			"day":     m.Days.Classes,
			"weather": m.Weathers.Classes,
		},
	}, ""), nil)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDelayModel, "encode model")
	}

	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDelayModel, "encode model")
	}
	return data, nil
}

// Save записывает модель в YAML файл
func (m *LinearModel) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperror.Wrap(err, apperror.CodeDelayModel, "write model "+path)
	}
	return nil
}

// LoadModel читает модель из YAML файла
func LoadModel(path string) (*LinearModel, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDelayModel, "load model "+path)
	}
	return modelFromKoanf(k)
}

// ParseModel разбирает модель из YAML
func ParseModel(data []byte) (*LinearModel, error) {
	raw, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDelayModel, "parse model")
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, ""), nil); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDelayModel, "parse model")
	}
	return modelFromKoanf(k)
}

func modelFromKoanf(k *koanf.Koanf) (*LinearModel, error) {
	var doc modelFile
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDelayModel, "decode model")
	}
	if len(doc.Coefficients) != featureCount {
		return nil, apperror.Newf(apperror.CodeDelayModel, "model has %d coefficients, want %d", len(doc.Coefficients), featureCount)
	}

	return &LinearModel{
		Intercept:    doc.Intercept,
		Coefficients: doc.Coefficients,
		Origins:      FitEncoder("origin", doc.Classes.Origin),
		Dests:        FitEncoder("dest", doc.Classes.Dest),
		Days:         FitEncoder("day", doc.Classes.Day),
		Weathers:     FitEncoder("weather", doc.Classes.Weather),
	}, nil
}

// LoadOrTrain возвращает модель по пути из конфигурации:
// пусто - обучение на встроенном наборе, .csv - обучение на файле, .yaml/.yml - готовая модель.
func LoadOrTrain(path string) (*LinearModel, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "":
		if path != "" {
			break
		}
		return Train(DefaultSamples(), DefaultRidge)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeDelayModel, "open samples "+path)
		}
		defer f.Close()

		samples, err := ReadSamplesCSV(f)
		if err != nil {
			return nil, err
		}
		return Train(samples, DefaultRidge)
	case ".yaml", ".yml":
		return LoadModel(path)
	}
	return nil, apperror.Newf(apperror.CodeDelayModel, "unsupported delay model file %q", path)
}
