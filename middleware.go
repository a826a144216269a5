package girder

import (
	"log"
	"net/http"
	"time"
)

// RequestLogger logs method, path, duration and outcome for each request.
// The duration is measured in the teardown phase: the middleware proceeds,
// waits for the rest of the chain (terminal handler included) to settle,
// then logs.
func RequestLogger() Middleware {
	return func(req, res any, next *Next) (*Task, error) {
		scope := req.(*RequestScope)
		method := scope.Request.Method
		path := scope.Request.URL.Path
		start := time.Now()

		return Go(func() error {
			err := next.Proceed().Wait()
			if err != nil {
				log.Printf("%s %s failed in %s: %v", method, path, time.Since(start), err)
			} else {
				log.Printf("%s %s handled in %s", method, path, time.Since(start))
			}
			return err
		}), nil
	}
}

// Recoverer converts any downstream failure (including recovered panics)
// into a 500 JSON response, so a broken handler never takes the whole chain
// down with it. Place it before the stages it should guard.
func Recoverer() Middleware {
	return func(req, res any, next *Next) (*Task, error) {
		slot := res.(*ResponseSlot)

		return Go(func() error {
			err := next.Proceed().Wait()
			if err == nil {
				return nil
			}
			log.Printf("recovered chain failure: %v", err)
			slot.Response = JSON(http.StatusInternalServerError, map[string]string{
				"error": "internal server error",
			})
			// Failure handled: the chain resolves as success with the
			// prepared response.
			return nil
		}), nil
	}
}
