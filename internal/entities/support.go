package entities

type TicketRequest struct {
	Subject          string  `json:"subject"`
	Category         string  `json:"category"`
	Priority         string  `json:"priority"`
	Description      string  `json:"description"`
	RelatedBookingID *string `json:"related_booking_id,omitempty"`
}

type TicketMessageRequest struct {
	Message string `json:"message"`
}

type TicketStatusRequest struct {
	Status     string  `json:"status"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

type TicketRatingRequest struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

type TicketFilter struct {
	UserID   string
	Status   string
	Category string
	Priority string
	Limit    int
	Offset   int
}
