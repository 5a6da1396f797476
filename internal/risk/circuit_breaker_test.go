package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCircuitBreakerManager(t *testing.T) {
	manager := NewCircuitBreakerManager()

	require.NotNil(t, manager)
	require.NotNil(t, manager.chainClient)
	require.NotNil(t, manager.advisor)
	require.NotNil(t, manager.metrics)

	assert.Equal(t, gobreaker.StateClosed, manager.chainClient.State())
	assert.Equal(t, gobreaker.StateClosed, manager.advisor.State())
}

func TestCircuitBreakerManager_ChainClient(t *testing.T) {
	manager := NewCircuitBreakerManager()

	t.Run("successful requests keep circuit closed", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			_, err := manager.ChainClient().Execute(func() (interface{}, error) {
				return "success", nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, gobreaker.StateClosed, manager.ChainClient().State())
	})

	t.Run("circuit opens after threshold failures", func(t *testing.T) {
		manager := NewCircuitBreakerManager()

		// ChainClient CB: needs 5 requests with 60% failure rate
		for i := 0; i < 5; i++ {
			manager.ChainClient().Execute(func() (interface{}, error) {
				return nil, errors.New("chain client error")
			})
		}

		assert.Equal(t, gobreaker.StateOpen, manager.ChainClient().State())

		_, err := manager.ChainClient().Execute(func() (interface{}, error) {
			return "should not execute", nil
		})
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	})

	t.Run("circuit is still open right after tripping", func(t *testing.T) {
		manager := NewCircuitBreakerManager()

		for i := 0; i < 5; i++ {
			manager.ChainClient().Execute(func() (interface{}, error) {
				return nil, errors.New("chain client error")
			})
		}

		assert.Equal(t, gobreaker.StateOpen, manager.ChainClient().State())

		require.NotNil(t, manager)
		require.NotNil(t, manager.ChainClient())
	})
}

func TestCircuitBreakerManager_Advisor(t *testing.T) {
	t.Run("advisor circuit opens after 3 failures", func(t *testing.T) {
		manager := NewCircuitBreakerManager()

		// Advisor CB: needs 3 requests with 60% failure rate
		for i := 0; i < 3; i++ {
			manager.Advisor().Execute(func() (interface{}, error) {
				return nil, errors.New("advisor timeout")
			})
		}

		assert.Equal(t, gobreaker.StateOpen, manager.Advisor().State())

		_, err := manager.Advisor().Execute(func() (interface{}, error) {
			return "should not execute", nil
		})
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	})

	t.Run("advisor circuit has longer timeout than chain client", func(t *testing.T) {
		mgr := NewCircuitBreakerManager()
		assert.NotNil(t, mgr.Advisor())
		assert.True(t, AdvisorOpenTimeout > ChainClientOpenTimeout)
	})
}

func TestCircuitBreakerMetrics_RecordRequest(t *testing.T) {
	manager := NewCircuitBreakerManager()
	metrics := manager.Metrics()

	t.Run("record successful request", func(t *testing.T) {
		metrics.RecordRequest("chain_client", true)
	})

	t.Run("record failed request", func(t *testing.T) {
		metrics.RecordRequest("chain_client", false)
	})

	t.Run("record requests for different services", func(t *testing.T) {
		metrics.RecordRequest("chain_client", true)
		metrics.RecordRequest("advisor", true)
		metrics.RecordRequest("advisor", false)
	})
}

func TestCircuitBreakerManager_StateTransitions(t *testing.T) {
	manager := NewCircuitBreakerManager()

	t.Run("failures move the chain client breaker from closed to open", func(t *testing.T) {
		assert.Equal(t, gobreaker.StateClosed, manager.ChainClient().State())

		for i := 0; i < 5; i++ {
			manager.ChainClient().Execute(func() (interface{}, error) {
				return nil, errors.New("failure")
			})
		}

		assert.Equal(t, gobreaker.StateOpen, manager.ChainClient().State())
	})
}

func TestCircuitBreakerManager_ConcurrentAccess(t *testing.T) {
	manager := NewCircuitBreakerManager()

	t.Run("concurrent requests to same circuit breaker", func(t *testing.T) {
		done := make(chan bool, 10)

		for i := 0; i < 10; i++ {
			go func() {
				defer func() { done <- true }()

				_, err := manager.ChainClient().Execute(func() (interface{}, error) {
					time.Sleep(10 * time.Millisecond)
					return "success", nil
				})

				if err != nil && !errors.Is(err, gobreaker.ErrOpenState) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}

		for i := 0; i < 10; i++ {
			<-done
		}
	})
}

func TestCircuitBreakerManager_MixedSuccessFailure(t *testing.T) {
	manager := NewCircuitBreakerManager()

	t.Run("mixed success and failure stays closed", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			manager.ChainClient().Execute(func() (interface{}, error) {
				if i%3 == 0 {
					return nil, errors.New("occasional failure")
				}
				return "success", nil
			})
		}

		// 4 of 10 requests fail (i = 0, 3, 6, 9): 40%, below the 60% threshold.
		assert.Equal(t, gobreaker.StateClosed, manager.ChainClient().State())
	})
}

func TestCircuitBreakerManager_OpenRejectsRequests(t *testing.T) {
	t.Run("circuit goes from closed to open and rejects requests", func(t *testing.T) {
		manager := NewCircuitBreakerManager()

		assert.Equal(t, gobreaker.StateClosed, manager.ChainClient().State())

		for i := 0; i < 5; i++ {
			manager.ChainClient().Execute(func() (interface{}, error) {
				return nil, errors.New("failure")
			})
		}
		assert.Equal(t, gobreaker.StateOpen, manager.ChainClient().State())

		_, err := manager.ChainClient().Execute(func() (interface{}, error) {
			return "test", nil
		})
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	})
}

func TestCircuitBreakerManager_DifferentServices(t *testing.T) {
	manager := NewCircuitBreakerManager()

	t.Run("circuit breakers are independent", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			manager.ChainClient().Execute(func() (interface{}, error) {
				return nil, errors.New("chain client error")
			})
		}

		assert.Equal(t, gobreaker.StateOpen, manager.ChainClient().State())
		assert.Equal(t, gobreaker.StateClosed, manager.Advisor().State())

		_, err := manager.Advisor().Execute(func() (interface{}, error) {
			return "success", nil
		})
		assert.NoError(t, err)
	})
}

func TestCircuitBreakerManager_ErrorPropagation(t *testing.T) {
	manager := NewCircuitBreakerManager()

	t.Run("function errors are propagated", func(t *testing.T) {
		expectedErr := errors.New("specific error message")

		_, err := manager.ChainClient().Execute(func() (interface{}, error) {
			return nil, expectedErr
		})

		assert.Equal(t, expectedErr, err)
	})

	t.Run("return values are propagated", func(t *testing.T) {
		expectedValue := map[string]interface{}{
			"status": "ok",
			"data":   []int{1, 2, 3},
		}

		result, err := manager.ChainClient().Execute(func() (interface{}, error) {
			return expectedValue, nil
		})

		require.NoError(t, err)
		assert.Equal(t, expectedValue, result)
	})
}

func TestCircuitBreakerManager_MetricsSingleton(t *testing.T) {
	t.Run("multiple managers share metrics", func(t *testing.T) {
		manager1 := NewCircuitBreakerManager()
		manager2 := NewCircuitBreakerManager()

		require.NotNil(t, manager1)
		require.NotNil(t, manager2)

		require.NotNil(t, manager1.ChainClient())
		require.NotNil(t, manager2.ChainClient())

		assert.Same(t, manager1.metrics, manager2.metrics)
	})
}

func TestCircuitBreakerManager_RealWorldScenario(t *testing.T) {
	t.Run("simulate chain client RPC failures and recovery", func(t *testing.T) {
		manager := NewCircuitBreakerManager()

		for i := 0; i < 3; i++ {
			result, err := manager.ChainClient().Execute(func() (interface{}, error) {
				return "swap_submitted", nil
			})
			require.NoError(t, err)
			assert.Equal(t, "swap_submitted", result)
		}
		assert.Equal(t, gobreaker.StateClosed, manager.ChainClient().State())

		// 5 failures out of 8 total = 62.5% failure rate, above the 60% threshold.
		for i := 0; i < 5; i++ {
			manager.ChainClient().Execute(func() (interface{}, error) {
				return nil, errors.New("rpc timeout")
			})
		}
		assert.Equal(t, gobreaker.StateOpen, manager.ChainClient().State())

		_, err := manager.ChainClient().Execute(func() (interface{}, error) {
			t.Fatal("should not execute while circuit is open")
			return nil, nil
		})
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)

		assert.Equal(t, gobreaker.StateOpen, manager.ChainClient().State())
	})
}
