package service

import (
	"strings"

	"evcharging-backend/internal/apperr"
)

// violations collects field errors so a request reports all of them at once.
type violations []string

func (v *violations) add(field, reason string) {
	*v = append(*v, field+": "+reason)
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return apperr.Validation(strings.Join(v, ", "))
}
