package controller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gramlinux/GramManager/system/shared"
	"github.com/gramlinux/GramManager/util"

	"github.com/pkg/errors"
)

// ErrUnknownFeature is returned when a key does not name any feature
var ErrUnknownFeature = errors.New("unknown feature")

const subscriberBuffer = 16

// Change describes a new value of a feature
type Change struct {
	Key   string
	Value string
	// External is true when the change was picked up by polling rather than made through Set
	External bool
}

type workQueue struct {
	noisy chan<- interface{}
	clean <-chan util.DebounceEvent
}

// Controller publishes changes to the features and persists changes made through it.
// The feature set is fixed at construction, mu guards the subscribers and the dirty flag only
type Controller struct {
	dep *Dependencies

	notifyCh     chan<- util.Notification
	notify       bool
	pollInterval time.Duration
	persistDelay time.Duration

	mu          sync.Mutex
	features    map[string]shared.Feature
	subscribers map[int]chan Change
	nextSub     int
	dirty       bool

	persistCh chan struct{}
}

// New returns a Controller operating on dep
func New(conf RunConfig, dep *Dependencies) (*Controller, error) {
	if dep == nil {
		return nil, errors.New("[controller] nil Dependencies is invalid")
	}
	if dep.ConfigRegistry == nil {
		return nil, errors.New("[controller] nil ConfigRegistry is invalid")
	}

	opts := conf.Options
	opts.setDefaults()

	features := make(map[string]shared.Feature, len(dep.Features))
	for _, f := range dep.Features {
		features[f.Key()] = f
	}

	return &Controller{
		dep:          dep,
		notifyCh:     conf.NotifierCh,
		notify:       opts.Notify,
		pollInterval: opts.PollInterval,
		persistDelay: defaultPersistDelay,
		features:     features,
		subscribers:  make(map[int]chan Change),
		persistCh:    make(chan struct{}, 1),
	}, nil
}

// Dependencies returns the controls driven by the controller
func (c *Controller) Dependencies() *Dependencies {
	return c.dep
}

// Features returns a snapshot of every feature in display order
func (c *Controller) Features() []shared.State {
	states := make([]shared.State, 0, len(c.dep.Features))
	for _, f := range c.dep.Features {
		states = append(states, shared.Snapshot(f))
	}
	return states
}

// Get returns a snapshot of the feature named by key
func (c *Controller) Get(key string) (shared.State, error) {
	f, ok := c.features[key]
	if !ok {
		return shared.State{}, errors.Wrap(ErrUnknownFeature, key)
	}
	return shared.Snapshot(f), nil
}

// Set changes the feature named by key. The new value is persisted after a short delay.
// A write waiting on elevation blocks other writes to the same feature only
func (c *Controller) Set(ctx context.Context, key, value string) (shared.State, error) {
	f, ok := c.features[key]
	if !ok {
		return shared.State{}, errors.Wrap(ErrUnknownFeature, key)
	}
	err := f.Set(ctx, value)
	state := shared.Snapshot(f)
	if err != nil {
		log.Printf("[controller] error setting %s to %s: %v\n", key, value, err)
		return state, err
	}

	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()

	log.Printf("[controller] %s set to %s\n", key, state.Value)
	c.publish(Change{Key: key, Value: state.Value})

	select {
	case c.persistCh <- struct{}{}:
	default:
	}
	return state, nil
}

// Refresh re-reads every available feature and returns the ones that changed
func (c *Controller) Refresh() []Change {
	changes := make([]Change, 0)
	for _, f := range c.dep.Features {
		if !f.Available() {
			continue
		}
		changed, err := f.Refresh()
		if err != nil {
			log.Printf("[controller] error refreshing %s: %v\n", f.Key(), err)
			continue
		}
		if changed {
			changes = append(changes, Change{
				Key:      f.Key(),
				Value:    f.Current(),
				External: true,
			})
		}
	}

	for _, change := range changes {
		c.publish(change)
	}
	return changes
}

// Subscribe returns a channel receiving every Change. Slow subscribers miss changes rather than blocking the controller
func (c *Controller) Subscribe() (<-chan Change, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Change, subscriberBuffer)
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

func (c *Controller) publish(change Change) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}

// Save writes the current values to the settings file
func (c *Controller) Save() error {
	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()

	if err := c.dep.ConfigRegistry.Save(); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return errors.Wrap(err, "[controller] error saving settings")
	}
	return nil
}

// Load reads the settings file without touching the hardware, so the next
// Save keeps the values saved earlier
func (c *Controller) Load() error {
	if err := c.dep.ConfigRegistry.Load(); err != nil {
		return errors.Wrap(err, "[controller] error loading settings")
	}
	return nil
}

// Restore loads the settings file, applies the values to hardware, then re-reads the hardware.
// Every feature is attempted, the returned error lists the ones that failed
func (c *Controller) Restore() error {
	if err := c.Load(); err != nil {
		return err
	}
	applyErr := c.dep.ConfigRegistry.Apply()
	if applyErr != nil {
		log.Printf("[controller] some settings could not be applied: %v\n", applyErr)
	}

	c.Refresh()
	if applyErr != nil {
		return errors.Wrap(applyErr, "[controller] error applying settings")
	}
	return nil
}

func (c *Controller) notifyExternal(change Change) {
	if !c.notify || c.notifyCh == nil {
		return
	}
	title := change.Key
	if f, ok := c.features[change.Key]; ok {
		title = f.Title()
	}
	select {
	case c.notifyCh <- util.Notification{
		Title:   title,
		Message: fmt.Sprintf("%s changed to %s", title, change.Value),
	}:
	default:
	}
}

// Serve polls the hardware for changes made elsewhere and persists changes until haltCtx is cancelled
func (c *Controller) Serve(haltCtx context.Context) error {
	log.Println("[controller] starting controller loop")

	in, out := util.Debounce(haltCtx, c.persistDelay)
	persist := workQueue{
		noisy: in,
		clean: out,
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.persistCh:
			select {
			case persist.noisy <- struct{}{}:
			case <-haltCtx.Done():
			}

		case ev := <-persist.clean:
			log.Printf("[controller] persisting settings after %d change(s)\n", ev.Counter)
			if err := c.Save(); err != nil {
				log.Printf("[controller] %v\n", err)
			}

		case <-ticker.C:
			for _, change := range c.Refresh() {
				log.Printf("[controller] %s changed externally to %s\n", change.Key, change.Value)
				c.notifyExternal(change)
			}

		case <-haltCtx.Done():
			c.mu.Lock()
			dirty := c.dirty
			c.mu.Unlock()
			if dirty {
				if err := c.Save(); err != nil {
					log.Printf("[controller] error flushing settings: %v\n", err)
				}
			}
			log.Println("[controller] exiting controller loop")
			return nil
		}
	}
}

func (c *Controller) String() string {
	return "Controller"
}
