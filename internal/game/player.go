package game

// Role is fixed for the lifetime of a room.
type Role int

const (
	RolePlayer Role = iota
	RoleDealer
)

func (r Role) String() string {
	return [...]string{"player", "dealer"}[r]
}

// Status of a seat within the current hand.
type Status int

const (
	StatusActive Status = iota
	StatusFolded
	StatusDisconnected
)

func (s Status) String() string {
	return [...]string{"active", "folded", "disconnected"}[s]
}

// Player is a seat in a room
type Player struct {
	ID       string
	Name     string
	Role     Role
	Status   Status
	RoundBet int // Contributed in the current betting round
	TotalBet int // Contributed in the whole hand
}

// IsDealer reports whether the seat belongs to the room's dealer.
func (p *Player) IsDealer() bool {
	return p.Role == RoleDealer
}

// IsActive returns true if the seat can still receive a turn this hand
func (p *Player) IsActive() bool {
	return p.Status == StatusActive
}

func (p *Player) resetForHand() {
	p.Status = StatusActive
	p.RoundBet = 0
	p.TotalBet = 0
}

func (p *Player) contribute(amount int) {
	p.RoundBet += amount
	p.TotalBet += amount
}
