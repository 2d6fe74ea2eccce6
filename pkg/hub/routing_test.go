package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdlc-forge/maestro/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		AgentRegistry: config.NewAgentRegistry(map[string]*config.AgentConfig{
			"baron": {
				URL:    "http://localhost:9001",
				Topics: []string{"architecture", "testing"},
			},
			"sentinel": {
				URL:    "http://localhost:9002",
				Topics: []string{"security"},
			},
		}),
		TopicOverrides: map[string]*config.TopicOverride{
			"security": {Agent: "sentinel", ConfidenceThreshold: 95},
		},
		Hub: &config.HubConfig{DefaultThreshold: 80},
	}
}

func TestRouterResolve(t *testing.T) {
	router := NewRouter(testConfig())

	t.Run("agent topic list", func(t *testing.T) {
		route, err := router.Resolve("architecture")
		require.NoError(t, err)
		assert.Equal(t, "baron", route.AgentID)
		assert.Equal(t, 80, route.Threshold)
	})

	t.Run("override wins and carries its threshold", func(t *testing.T) {
		route, err := router.Resolve("security")
		require.NoError(t, err)
		assert.Equal(t, "sentinel", route.AgentID)
		assert.Equal(t, 95, route.Threshold)
	})

	t.Run("unknown topic", func(t *testing.T) {
		_, err := router.Resolve("databases")
		assert.ErrorIs(t, err, ErrUnknownTopic)
	})
}

func TestRouterResolveDuplicateTopicClaim(t *testing.T) {
	// Two agents declaring the same topic resolve deterministically to the
	// first in id order, not whichever a map iteration yields.
	cfg := &config.Config{
		AgentRegistry: config.NewAgentRegistry(map[string]*config.AgentConfig{
			"zephyr": {URL: "http://localhost:9003", Topics: []string{"databases"}},
			"baron":  {URL: "http://localhost:9001", Topics: []string{"databases"}},
		}),
		Hub: &config.HubConfig{DefaultThreshold: 80},
	}
	router := NewRouter(cfg)

	for i := 0; i < 20; i++ {
		route, err := router.Resolve("databases")
		require.NoError(t, err)
		assert.Equal(t, "baron", route.AgentID)
	}
}

func TestRouterAgent(t *testing.T) {
	router := NewRouter(testConfig())

	agent, err := router.Agent("baron")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9001", agent.URL)

	_, err = router.Agent("ghost")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestRouterKnownTopics(t *testing.T) {
	router := NewRouter(testConfig())
	assert.Equal(t, []string{"architecture", "security", "testing"}, router.KnownTopics())
}
