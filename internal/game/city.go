package game

import (
	"fmt"

	"github.com/buxx/civ/internal/space"
)

// Tons is an amount of production.
type Tons uint64

type ProductKind uint32

const (
	ProductUnit ProductKind = iota
)

// Product is something a city can build.
type Product struct {
	Kind ProductKind
	Unit UnitType
}

func UnitProduct(t UnitType) Product {
	return Product{Kind: ProductUnit, Unit: t}
}

func (p Product) String() string {
	switch p.Kind {
	case ProductUnit:
		return "Unit(" + p.Unit.String() + ")"
	default:
		return fmt.Sprintf("Product(%d)", uint32(p.Kind))
	}
}

// Production is the ordered build queue of a city. It is never empty.
type Production struct {
	Queue []Product
}

func NewProduction(products ...Product) Production {
	return Production{Queue: append([]Product(nil), products...)}
}

// DefaultProduction is the queue of a freshly founded city.
func DefaultProduction() Production {
	return NewProduction(UnitProduct(UnitWarriors))
}

func (p Production) Current() Product {
	if len(p.Queue) == 0 {
		return UnitProduct(UnitWarriors)
	}
	return p.Queue[0]
}

// Next returns the queue after the current product is built. A single
// entry queue keeps producing the same product.
func (p Production) Next() Production {
	if len(p.Queue) <= 1 {
		return p.Clone()
	}
	return NewProduction(p.Queue[1:]...)
}

func (p Production) Clone() Production {
	return Production{Queue: append([]Product(nil), p.Queue...)}
}

// Exploitation is the production rate of a city, in tons.
type Exploitation struct {
	Tons Tons
}

func NewExploitation(tons Tons) Exploitation {
	return Exploitation{Tons: tons}
}

type CityTasks struct {
	Production TaskRef
}

type City struct {
	ID           CityID
	Flag         Flag
	Name         string
	Point        space.Point
	Production   Production
	Exploitation Exploitation
	Tasks        CityTasks
}

func (c City) Clone() City {
	cp := c
	cp.Production = c.Production.Clone()
	return cp
}

// TaskIDs lists the ids of the tasks owned by the city.
func (c City) TaskIDs() []TaskID {
	return []TaskID{c.Tasks.Production.ID}
}
