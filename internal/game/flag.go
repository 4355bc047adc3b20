package game

import "fmt"

// Flag identifies a nation. A flag is owned by at most one player.
type Flag uint32

const (
	FlagAbkhazia Flag = iota
	FlagAborigines
	FlagAcadia
	FlagAceh
	FlagAcre
	FlagAdygea
	FlagAfghanistan
	FlagAfrica
	FlagAinu
	FlagAkwe
	FlagAland
	FlagAlaska
	FlagAlbania
	FlagAleut
	FlagAlgeria
	FlagAlmohad
	FlagAlsace
	FlagAmazigh
	FlagAmazon
	FlagAndorra
	FlagAngola
	FlagAnimals
	FlagAnhalt
	FlagAntarctica
	FlagAragon
	FlagArgentina
	FlagArmenia
	FlagAssyria
	FlagAustralia
	FlagAustria
	FlagAzerbaijan
	FlagAztec
	FlagBabylon
	FlagBavaria
	FlagBelgium
	FlagBrazil
	FlagBrittany
	FlagBulgaria
	FlagBurgundy
	FlagByzantium
	FlagCanada
	FlagCarthage
	FlagCeltic
	FlagChile
	FlagChina
	FlagCroatia
	FlagDenmark
	FlagEgypt
	FlagEngland
	FlagEthiopia
	FlagFinland
	FlagFrance
	FlagGermany
	FlagGreece
	FlagHungary
	FlagInca
	FlagIndia
	FlagIreland
	FlagItaly
	FlagJapan
	FlagKorea
	FlagMali
	FlagMaya
	FlagMongolia
	FlagNorway
	FlagPersia
	FlagPoland
	FlagPortugal
	FlagRome
	FlagRussia
	FlagScotland
	FlagSpain
	FlagSweden
	FlagTurkey
	FlagVikings
	FlagWales
	FlagZulu
	flagCount
)

var flagNames = [...]string{
	"Abkhazia", "Aborigines", "Acadia", "Aceh", "Acre", "Adygea", "Afghanistan",
	"Africa", "Ainu", "Akwe", "Aland", "Alaska", "Albania", "Aleut", "Algeria",
	"Almohad", "Alsace", "Amazigh", "Amazon", "Andorra", "Angola", "Animals",
	"Anhalt", "Antarctica", "Aragon", "Argentina", "Armenia", "Assyria",
	"Australia", "Austria", "Azerbaijan", "Aztec", "Babylon", "Bavaria",
	"Belgium", "Brazil", "Brittany", "Bulgaria", "Burgundy", "Byzantium",
	"Canada", "Carthage", "Celtic", "Chile", "China", "Croatia", "Denmark",
	"Egypt", "England", "Ethiopia", "Finland", "France", "Germany", "Greece",
	"Hungary", "Inca", "India", "Ireland", "Italy", "Japan", "Korea", "Mali",
	"Maya", "Mongolia", "Norway", "Persia", "Poland", "Portugal", "Rome",
	"Russia", "Scotland", "Spain", "Sweden", "Turkey", "Vikings", "Wales", "Zulu",
}

// Flags returns every known flag in declaration order.
func Flags() []Flag {
	out := make([]Flag, 0, flagCount)
	for f := Flag(0); f < flagCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Flag) Valid() bool {
	return f < flagCount
}

func (f Flag) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Flag(%d)", uint32(f))
	}
	return flagNames[f]
}

// ParseFlag returns the flag with the given name.
func ParseFlag(name string) (Flag, error) {
	for i, n := range flagNames {
		if n == name {
			return Flag(i), nil
		}
	}
	return 0, fmt.Errorf("unknown flag %q", name)
}
