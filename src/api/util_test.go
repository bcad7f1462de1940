package api

import (
	"errors"
	"strconv"
)

var errTest = errors.New("store unavailable")

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
