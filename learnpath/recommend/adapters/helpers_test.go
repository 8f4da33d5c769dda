package adapters

import (
	"time"

	"github.com/ZanzyTHEbar/learnpath/learnpath/config"
)

func testRetrievalConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		Timeout:                 time.Second,
		BreakerMaxRequests:      1,
		BreakerTimeout:          time.Minute,
		BreakerFailureThreshold: 5,
	}
}
