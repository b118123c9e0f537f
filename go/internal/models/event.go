package models

// TicketType is a purchasable ticket class of an event
type TicketType struct {
	ID          ID      `json:"id"`
	Type        string  `json:"type"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description"`
}

// Event represents an event listed on the marketplace.
type Event struct {
	ID          ID           `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Location    string       `json:"location"`
	StartDate   string       `json:"startDate"`
	Duration    string       `json:"duration"`
	Organizer   string       `json:"organizer"`
	BannerURL   string       `json:"bannerUrl"`
	TicketTypes []TicketType `json:"ticketTypes"`
}

// MinPrice returns the cheapest ticket price, or zero when the event has no
// ticket types.
func (e *Event) MinPrice() float64 {
	var min float64
	for i, tt := range e.TicketTypes {
		if i == 0 || tt.Price < min {
			min = tt.Price
		}
	}
	return min
}

// TicketType looks up a ticket type by id
func (e *Event) TicketType(id ID) (TicketType, bool) {
	for _, tt := range e.TicketTypes {
		if tt.ID == id {
			return tt, true
		}
	}
	return TicketType{}, false
}
