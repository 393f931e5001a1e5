package background

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gramlinux/GramManager/util"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

const (
	defaultReleaseAPI = "https://api.github.com"
	checkInterval     = time.Hour * 6
)

type VersionChecker struct {
	current  *semver.Version
	repo     string
	api      string
	client   *http.Client
	tick     chan time.Time
	notifier chan<- util.Notification
	notified *semver.Version
}

type release struct {
	TagName string `json:"tag_name"`
}

func NewVersionCheck(current string, repo string, notifier chan<- util.Notification) (*VersionChecker, error) {
	sem, err := semver.NewVersion(current)
	if err != nil {
		return nil, errors.Wrapf(err, "[VersionChecker] invalid current version %s", current)
	}
	tick := make(chan time.Time, 1)
	tick <- time.Now()

	return &VersionChecker{
		current: sem,
		repo:    repo,
		api:     defaultReleaseAPI,
		client: &http.Client{
			Timeout: time.Second * 5,
		},
		tick:     tick,
		notifier: notifier,
	}, nil
}

func (v *VersionChecker) String() string {
	return "VersionChecker"
}

func (v *VersionChecker) Serve(haltCtx context.Context) error {
	log.Println("[VersionChecker] starting checker loop")

	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				select {
				case v.tick <- t:
				default:
				}
			case <-haltCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-haltCtx.Done():
			log.Println("[VersionChecker] stopping checker loop")
			return nil
		case <-v.tick:
			log.Println("[VersionChecker] checking for new version")
			v.check(haltCtx)
		}
	}
}

func (v *VersionChecker) check(ctx context.Context) {
	latest, err := v.getLatest(ctx)
	if err != nil {
		log.Printf("[VersionChecker] error checking for new version: %+v\n", err)
		return
	}
	if !latest.GreaterThan(v.current) {
		return
	}
	if v.notified != nil && v.notified.Equal(latest) {
		return
	}
	log.Printf("[VersionChecker] new version found: %s\n", latest.String())
	v.notified = latest
	v.notifier <- util.Notification{
		Title:   "New Version Available",
		Message: fmt.Sprintf("A new version of LG Gram Manager is available: %s", latest.String()),
	}
}

func (v *VersionChecker) getLatest(ctx context.Context) (*semver.Version, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", v.api, v.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	res, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s", res.Status)
	}

	var r release
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	return semver.NewVersion(r.TagName)
}
