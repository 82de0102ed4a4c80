package commands

import (
	"github.com/indoor-mall-nav/navign-sub000/internal/httpclient"
)

// unlockerClient wraps httpclient.Client with the entity/beacon scoping
// each subcommand supplies via flags.
type unlockerClient struct {
	baseURL string
	token   string
}

func newUnlockerClient(baseURL, token string) *unlockerClient {
	return &unlockerClient{baseURL: baseURL, token: token}
}

// scoped returns an httpclient.Client bound to one entity/beacon pair.
func (c *unlockerClient) scoped(entityID, beaconID string) *httpclient.Client {
	return httpclient.New(c.baseURL, entityID, beaconID, c.token)
}

// entityScoped returns an httpclient.Client bound to one entity, for the
// router/pathfind query routes which have no beacon in their path.
func (c *unlockerClient) entityScoped(entityID string) *httpclient.Client {
	return httpclient.New(c.baseURL, entityID, "", c.token)
}
