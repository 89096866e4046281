package services

import (
	"fmt"
	"math"
	"time"

	"cngflow/estimator"
	"cngflow/models"
)

type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorGray   Color = "gray"
)

// trustedConfidence is the confidence above which the estimate replaces the
// raw reading on the map.
const trustedConfidence = 70

// Display is the presentation of one station's estimate.
type Display struct {
	Color           Color           `json:"color"`
	EffectiveStatus estimator.Level `json:"effective_status,omitempty"`
	QueueText       string          `json:"queue_text"`
	MarkerText      string          `json:"marker_text"`
	UpdatedText     string          `json:"updated_text"`
}

func ColorFor(l estimator.Level) Color {
	switch l {
	case estimator.Low:
		return ColorGreen
	case estimator.Medium:
		return ColorYellow
	case estimator.High:
		return ColorRed
	}
	return ColorGray
}

// ParseColor accepts the status filter values used by the station list.
func ParseColor(s string) (Color, bool) {
	switch c := Color(s); c {
	case ColorGreen, ColorYellow, ColorRed, ColorGray:
		return c, true
	}
	return "", false
}

func Present(st models.Station, res estimator.Result, now time.Time) Display {
	d := Display{
		QueueText:   QueueText(st.LastQueueLength),
		UpdatedText: UpdatedText(st.LastUpdatedAt, now),
	}

	switch {
	case res.Confidence > trustedConfidence || res.Extrapolated:
		d.EffectiveStatus = res.Status
	case st.LastQueueLength != nil:
		d.EffectiveStatus = estimator.StatusFor(*st.LastQueueLength)
	}

	if st.LastQueueLength == nil && !res.Extrapolated {
		d.Color = ColorGray
		d.EffectiveStatus = ""
	} else {
		d.Color = ColorFor(d.EffectiveStatus)
	}

	switch {
	case res.Extrapolated:
		d.MarkerText = fmt.Sprintf("~%d", res.PredictedQueueLength)
	case st.LastQueueLength != nil:
		d.MarkerText = fmt.Sprintf("%d", *st.LastQueueLength)
	default:
		d.MarkerText = "?"
	}
	return d
}

func QueueText(q *int) string {
	switch {
	case q == nil:
		return "No data"
	case *q == 0:
		return "Empty"
	case *q <= 15:
		return fmt.Sprintf("%d in queue", *q)
	}
	return fmt.Sprintf("%d+ in queue", *q)
}

func UpdatedText(updated *time.Time, now time.Time) string {
	if updated == nil {
		return "never"
	}
	minutes := int(math.Floor(now.Sub(*updated).Minutes()))
	if minutes < 1 {
		return "just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour"))
	}
	days := hours / 24
	return fmt.Sprintf("%d %s ago", days, plural(days, "day"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
