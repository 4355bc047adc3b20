package handler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/buxx/civ/internal/game"
	"github.com/buxx/civ/internal/task"
	"golang.org/x/text/unicode/norm"
)

// MaxCityNameLength bounds city names, in runes.
const MaxCityNameLength = 64

// authorize checks that the client plays under owner.
func authorize(req Request, owner game.Flag) error {
	session, ok := req.State.Clients().SessionOf(req.Client)
	if !ok || session.Flag != owner {
		return ErrUnauthorized
	}
	return nil
}

func unitFor(req Request, id game.UnitID) (game.Unit, error) {
	unit, ok := req.State.Unit(id)
	if !ok {
		return game.Unit{}, ErrNoLongerExist
	}
	if err := authorize(req, unit.Flag); err != nil {
		return game.Unit{}, err
	}
	return unit, nil
}

func cityFor(req Request, id game.CityID) (game.City, error) {
	city, ok := req.State.City(id)
	if !ok {
		return game.City{}, ErrNoLongerExist
	}
	if err := authorize(req, city.Flag); err != nil {
		return game.City{}, err
	}
	return city, nil
}

// NormalizeCityName trims name and puts it in Unicode NFC form so visually
// identical names compare equal.
func NormalizeCityName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", task.ErrEmptyCityName
	}
	if utf8.RuneCountInString(name) > MaxCityNameLength {
		return "", fmt.Errorf("city name longer than %d characters", MaxCityNameLength)
	}
	return name, nil
}
