package request

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/vietanh2810/checkin-api/internal/domain"
)

// DateLayout is the accepted event date format.
const DateLayout = "2006-01-02"

var hoursExp = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type CreateEventRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Hours         string `json:"hours" example:"14:30"`
	Date          string `json:"date" example:"2024-06-01"`
	Location      string `json:"location"`
	Status        string `json:"status"`
	ResponsibleID *uint  `json:"responsible_id"`
}

func (req *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 200)),
		validation.Field(&req.Description, validation.Length(0, 2000)),
		validation.Field(&req.Hours, validation.Match(hoursExp)),
		validation.Field(&req.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&req.Location, validation.Length(0, 200)),
		validation.Field(&req.Status, validation.In(statusValues(domain.EventStatuses)...)),
	)
}

// ToDomain assumes Validate passed.
func (req *CreateEventRequest) ToDomain() domain.Event {
	date, _ := time.Parse(DateLayout, req.Date)

	return domain.Event{
		Name:          req.Name,
		Description:   req.Description,
		Hours:         req.Hours,
		Date:          date,
		Location:      req.Location,
		Status:        req.Status,
		ResponsibleID: req.ResponsibleID,
	}
}

func statusValues(statuses []string) []any {
	values := make([]any, len(statuses))
	for i, s := range statuses {
		values[i] = s
	}
	return values
}
