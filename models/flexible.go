package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleInt tolerates POS payloads that serialize minor-unit amounts as
// either JSON numbers or strings depending on event version.
type FlexibleInt int64

func (fi *FlexibleInt) UnmarshalJSON(data []byte) error {
	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*fi = FlexibleInt(i)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("unable to parse %q as amount", s)
		}
		*fi = FlexibleInt(parsed)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*fi = FlexibleInt(int64(f))
		return nil
	}

	return fmt.Errorf("unable to parse %s as FlexibleInt", string(data))
}

func (fi FlexibleInt) Int64() int64 {
	return int64(fi)
}
