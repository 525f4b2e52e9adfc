package library

import "errors"

// ErrInvalidCardType is returned when a card type code is neither "S" nor "T".
var ErrInvalidCardType = errors.New("invalid card type")

// CardType classifies a membership card holder.
type CardType int

const (
	Student CardType = iota
	Teacher
)

const (
	cardTypeCodeStudent = "S"
	cardTypeCodeTeacher = "T"
)

// Code returns the single-letter code used to persist the card type.
func (t CardType) Code() string {
	switch t {
	case Teacher:
		return cardTypeCodeTeacher
	default:
		return cardTypeCodeStudent
	}
}

// String provides a readable representation for logging and display.
func (t CardType) String() string {
	switch t {
	case Teacher:
		return "Teacher"
	default:
		return "Student"
	}
}

// CardTypeFromCode parses a persisted card type code.
func CardTypeFromCode(code string) (CardType, error) {
	switch code {
	case cardTypeCodeStudent:
		return Student, nil
	case cardTypeCodeTeacher:
		return Teacher, nil
	default:
		return Student, ErrInvalidCardType
	}
}

// Card is the membership entity. The ID is assigned by the storage engine
// on registration. Two cards with the same (Name, Department, Type) tuple
// are considered the same identity and the second registration is rejected.
type Card struct {
	ID         int64
	Name       string
	Department string
	Type       CardType
}
