package directory

import (
	"context"
	"fmt"
	"math/rand"

	"ems/internal/apperror"
)

type employeeNoChecker interface {
	EmployeeNoExists(ctx context.Context, no string) (bool, error)
}

// GenerateEmployeeNo produces an unused EMS### number. The space is small by
// design of the legacy numbering scheme, so collisions are retried a bounded
// number of times rather than looping forever on a full namespace.
func GenerateEmployeeNo(ctx context.Context, store employeeNoChecker) (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		no := fmt.Sprintf("EMS%d", 100+rand.Intn(900))
		exists, err := store.EmployeeNoExists(ctx, no)
		if err != nil {
			return "", err
		}
		if !exists {
			return no, nil
		}
	}
	return "", apperror.Conflict("no free employee id available")
}
