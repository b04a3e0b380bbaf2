package schedule

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"skypath/pkg/apperror"
	"skypath/pkg/domain"
)

// yamlSchedule - документ расписания:
//
//	airports: [A, B]
//	flights:
//	  - {id: FN-1, origin: A, dest: B, departure: 2, arrival: 6}
type yamlSchedule struct {
	Airports []string     `koanf:"airports"`
	Flights  []yamlFlight `koanf:"flights"`
}

type yamlFlight struct {
	ID        string  `koanf:"id"`
	Origin    string  `koanf:"origin"`
	Dest      string  `koanf:"dest"`
	Departure float64 `koanf:"departure"`
	Arrival   float64 `koanf:"arrival"`
}

// LoadYAML читает расписание из YAML файла
func LoadYAML(path string) (*domain.Network, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat, "load yaml schedule "+path)
	}
	return fromKoanf(k)
}

// ParseYAML разбирает расписание из байтов
func ParseYAML(data []byte) (*domain.Network, error) {
	raw, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat, "parse yaml schedule")
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(raw, ""), nil); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat, "parse yaml schedule")
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*domain.Network, error) {
	var doc yamlSchedule
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeScheduleFormat, "decode yaml schedule")
	}

	records := make([]Record, len(doc.Flights))
	for i, f := range doc.Flights {
		records[i] = Record{
			ID:        f.ID,
			Origin:    f.Origin,
			Dest:      f.Dest,
			Departure: f.Departure,
			Arrival:   f.Arrival,
			Line:      i + 1,
		}
	}
	return Build(doc.Airports, records)
}
