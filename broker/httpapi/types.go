package httpapi

// Wire types of the dashboard backend.

type stockDTO struct {
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	NumberAvailable int     `json:"numberAvailable"`
}

type userDTO struct {
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

type positionDTO struct {
	Stock  *stockDTO `json:"stock"`
	Number *int      `json:"number"`
}

type accountDTO struct {
	Positions []positionDTO `json:"positions"`
	Value     float64       `json:"value"`
}

type stockRef struct {
	Name string `json:"name"`
}

type orderDTO struct {
	Stock  stockRef `json:"stock"`
	Number int      `json:"number"`
}
