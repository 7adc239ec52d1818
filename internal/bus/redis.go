// README: Redis pub/sub bridge replicating hub events across instances.
package bus

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Publisher is what services publish through; either the bare Hub or a
// Bridge that also replicates to peers.
type Publisher interface {
	Publish(e Event)
}

const channelPrefix = "foodfast:events:"

type envelope struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Bridge fans events out to the local hub and mirrors them onto Redis
// pub/sub so subscribers connected to other instances see them too. Same
// at-most-once contract as the hub: no backlog, no replay.
type Bridge struct {
	hub    *Hub
	redis  *redis.Client
	origin string
}

func NewBridge(hub *Hub, rdb *redis.Client) *Bridge {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return &Bridge{hub: hub, redis: rdb, origin: hex.EncodeToString(b[:])}
}

func (b *Bridge) Publish(e Event) {
	b.hub.Publish(e)

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		log.Printf("bus: marshal payload for %s: %v", e.Topic, err)
		return
	}
	env := envelope{Origin: b.origin, Topic: e.Topic, Kind: e.Kind, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("bus: marshal envelope for %s: %v", e.Topic, err)
		return
	}
	// Fire-and-forget; a missed publish is an accepted loss.
	if err := b.redis.Publish(context.Background(), channelPrefix+e.Topic, data).Err(); err != nil {
		log.Printf("bus: redis publish %s: %v", e.Topic, err)
	}
}

// Run relays events published by peer instances into the local hub. Blocks
// until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.redis.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("bus: bad envelope on %s: %v", msg.Channel, err)
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			b.hub.Publish(Event{Topic: env.Topic, Kind: env.Kind, Payload: env.Payload})
		}
	}
}
