package schedule

import "skypath/pkg/domain"

// SampleRecords - встроенная демо-сеть: аэропорты A-E, рейсы FN-101..FN-107
func SampleRecords() []Record {
	return []Record{
		{ID: "FN-101", Origin: "A", Dest: "B", Departure: 2, Arrival: 6, Line: 1},
		{ID: "FN-102", Origin: "A", Dest: "C", Departure: 2, Arrival: 8, Line: 2},
		{ID: "FN-103", Origin: "B", Dest: "D", Departure: 12, Arrival: 13, Line: 3},
		{ID: "FN-104", Origin: "B", Dest: "E", Departure: 11, Arrival: 17, Line: 4},
		{ID: "FN-105", Origin: "C", Dest: "B", Departure: 9, Arrival: 10, Line: 5},
		{ID: "FN-106", Origin: "C", Dest: "D", Departure: 6, Arrival: 10, Line: 6},
		{ID: "FN-107", Origin: "D", Dest: "E", Departure: 13, Arrival: 14, Line: 7},
	}
}

// Sample строит демо-сеть
func Sample() *domain.Network {
	n, err := Build(nil, SampleRecords())
	if err != nil {
		panic("schedule: invalid sample network: " + err.Error())
	}
	return n
}
