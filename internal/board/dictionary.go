package board

import "strings"

// Dictionary names a predefined ArUco dictionary using OpenCV's spelling.
type Dictionary string

// Predefined dictionaries.
const (
	Dict4x4_50        Dictionary = "DICT_4X4_50"
	Dict4x4_100       Dictionary = "DICT_4X4_100"
	Dict4x4_250       Dictionary = "DICT_4X4_250"
	Dict4x4_1000      Dictionary = "DICT_4X4_1000"
	Dict5x5_50        Dictionary = "DICT_5X5_50"
	Dict5x5_100       Dictionary = "DICT_5X5_100"
	Dict5x5_250       Dictionary = "DICT_5X5_250"
	Dict5x5_1000      Dictionary = "DICT_5X5_1000"
	Dict6x6_50        Dictionary = "DICT_6X6_50"
	Dict6x6_100       Dictionary = "DICT_6X6_100"
	Dict6x6_250       Dictionary = "DICT_6X6_250"
	Dict6x6_1000      Dictionary = "DICT_6X6_1000"
	Dict7x7_50        Dictionary = "DICT_7X7_50"
	Dict7x7_100       Dictionary = "DICT_7X7_100"
	Dict7x7_250       Dictionary = "DICT_7X7_250"
	Dict7x7_1000      Dictionary = "DICT_7X7_1000"
	DictArucoOriginal Dictionary = "DICT_ARUCO_ORIGINAL"
)

var dictionaryCapacity = map[Dictionary]int{
	Dict4x4_50:        50,
	Dict4x4_100:       100,
	Dict4x4_250:       250,
	Dict4x4_1000:      1000,
	Dict5x5_50:        50,
	Dict5x5_100:       100,
	Dict5x5_250:       250,
	Dict5x5_1000:      1000,
	Dict6x6_50:        50,
	Dict6x6_100:       100,
	Dict6x6_250:       250,
	Dict6x6_1000:      1000,
	Dict7x7_50:        50,
	Dict7x7_100:       100,
	Dict7x7_250:       250,
	Dict7x7_1000:      1000,
	DictArucoOriginal: 1024,
}

// ParseDictionary accepts names case-insensitively, with or without the DICT_ prefix.
func ParseDictionary(name string) (Dictionary, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "DICT_") {
		n = "DICT_" + n
	}
	d := Dictionary(n)
	_, ok := dictionaryCapacity[d]
	return d, ok
}

// MarkerCapacity returns how many distinct marker ids the dictionary provides.
func (d Dictionary) MarkerCapacity() (int, bool) {
	n, ok := dictionaryCapacity[d]
	return n, ok
}
