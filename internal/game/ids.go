package game

import "github.com/google/uuid"

type (
	ClientID uuid.UUID
	PlayerID uuid.UUID
	UnitID   uuid.UUID
	CityID   uuid.UUID
	TaskID   uuid.UUID
)

func NewClientID() ClientID { return ClientID(uuid.New()) }
func NewPlayerID() PlayerID { return PlayerID(uuid.New()) }
func NewUnitID() UnitID     { return UnitID(uuid.New()) }
func NewCityID() CityID     { return CityID(uuid.New()) }
func NewTaskID() TaskID     { return TaskID(uuid.New()) }

func (id ClientID) String() string { return uuid.UUID(id).String() }
func (id PlayerID) String() string { return uuid.UUID(id).String() }
func (id UnitID) String() string   { return uuid.UUID(id).String() }
func (id CityID) String() string   { return uuid.UUID(id).String() }
func (id TaskID) String() string   { return uuid.UUID(id).String() }

// ParsePlayerID parses the textual form of a player id.
func ParsePlayerID(s string) (PlayerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PlayerID{}, err
	}
	return PlayerID(u), nil
}
