// Package export encodes events and computed free windows as iCalendar
// documents so they can be imported into any calendar app.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"booked/internal/models"
)

const productID = "-//booked//EN"

// Events writes the given events as a VCALENDAR.
func Events(w io.Writer, events []models.Event) error {
	cal := newCalendar()
	for _, ev := range events {
		cal.Children = append(cal.Children, eventComponent(ev))
	}
	return encode(w, cal)
}

// FreeWindows writes the given overlap windows as transparent VEVENTs, so
// importing the result does not block anyone's calendar.
func FreeWindows(w io.Writer, title string, windows []models.OverlapWindow) error {
	cal := newCalendar()
	for _, win := range windows {
		ve := ical.NewComponent(ical.CompEvent)
		ve.Props.SetText(ical.PropUID, uuid.NewString())
		ve.Props.SetText(ical.PropSummary, title)
		ve.Props.SetText(ical.PropTransparency, "TRANSPARENT")
		ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
		ve.Props.SetDateTime(ical.PropDateTimeStart, win.Start)
		ve.Props.SetDateTime(ical.PropDateTimeEnd, win.End)
		cal.Children = append(cal.Children, ve)
	}
	return encode(w, cal)
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

func eventComponent(ev models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, ev.ID)
	ve.Props.SetText(ical.PropSummary, ev.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
	if ev.Notes != "" {
		ve.Props.SetText(ical.PropDescription, ev.Notes)
	}
	if ev.Free {
		ve.Props.SetText(ical.PropTransparency, "TRANSPARENT")
	}
	for _, p := range ev.Participants {
		prop := ical.NewProp(ical.PropAttendee)
		prop.SetText(fmt.Sprintf("mailto:%s", p))
		ve.Props.Add(prop)
	}
	return ve
}

func encode(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode iCalendar: %w", err)
	}
	return nil
}
