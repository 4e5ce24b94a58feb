package models

import "strings"

// Category is an intensity category. The set is closed.
type Category int

const (
	Fingerboard Category = iota
	Campusboard
	Pullup
	Project
)

// Categories lists every category in breakdown order.
var Categories = []Category{Fingerboard, Campusboard, Pullup, Project}

func (c Category) String() string {
	switch c {
	case Fingerboard:
		return "fingerboard"
	case Campusboard:
		return "campusboard"
	case Pullup:
		return "pullup"
	case Project:
		return "project"
	default:
		return "unknown"
	}
}

// CategoryOf maps an exercise type tag to its category, case-insensitively.
// Tags outside the four categories ("other", typos) report false.
func CategoryOf(tag string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "fingerboard":
		return Fingerboard, true
	case "campus board", "campus_board", "campusboard":
		return Campusboard, true
	case "pullup", "pull-up":
		return Pullup, true
	case "project":
		return Project, true
	default:
		return 0, false
	}
}
