package delay

import (
	"slices"

	"skypath/pkg/apperror"
)

// LabelEncoder отображает категориальные метки в индексы отсортированного списка классов
type LabelEncoder struct {
	Name    string
	Classes []string
}

// FitEncoder строит кодировщик по наблюдаемым меткам
func FitEncoder(name string, labels []string) LabelEncoder {
	classes := slices.Clone(labels)
	slices.Sort(classes)
	return LabelEncoder{Name: name, Classes: slices.Compact(classes)}
}

// Transform возвращает индекс метки. Незнакомая метка - ошибка UNKNOWN_LABEL.
func (e LabelEncoder) Transform(label string) (float64, error) {
	i, ok := slices.BinarySearch(e.Classes, label)
	if !ok {
		return 0, apperror.Newf(apperror.CodeUnknownLabel, "unknown %s label %q", e.Name, label).
			WithField(e.Name)
	}
	return float64(i), nil
}
