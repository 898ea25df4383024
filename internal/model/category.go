package model

// Category is the semantic classification of a status change.
type Category string

const (
	CategoryDelay      Category = "delay"
	CategorySuspension Category = "suspension"
	CategoryRecovery   Category = "recovery"
	CategoryGeneral    Category = "general"
)

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDelay, CategorySuspension, CategoryRecovery, CategoryGeneral:
		return true
	}
	return false
}
