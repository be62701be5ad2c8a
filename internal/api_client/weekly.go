package api_client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// WeeklyBucket is one day of GET /events/weekly. Day is the key the API
// used; the dashboard aligns buckets by position, not by key.
type WeeklyBucket struct {
	Day   string
	Count int
}

type weeklyBuckets []WeeklyBucket

var errWeeklyFormat = errors.New("weekly events: expected an object or array of counts")

// decodeResponse keeps the key order of the JSON object, which a Go map
// would lose. A plain array of counts is accepted too.
func (w *weeklyBuckets) decodeResponse(r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("weekly events: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return errWeeklyFormat
	}

	var buckets weeklyBuckets
	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("weekly events: %w", err)
			}
			key, _ := keyTok.(string)

			count, err := decodeCount(dec)
			if err != nil {
				return err
			}
			buckets = append(buckets, WeeklyBucket{Day: key, Count: count})
		}
	case '[':
		for i := 0; dec.More(); i++ {
			count, err := decodeCount(dec)
			if err != nil {
				return err
			}
			buckets = append(buckets, WeeklyBucket{Day: fmt.Sprint(i), Count: count})
		}
	default:
		return errWeeklyFormat
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("weekly events: %w", err)
	}

	*w = buckets
	return nil
}

func decodeCount(dec *json.Decoder) (int, error) {
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("weekly events: count: %w", err)
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, fmt.Errorf("weekly events: count %q: %w", n, err)
		}
		v = int64(f)
	}
	return int(v), nil
}
