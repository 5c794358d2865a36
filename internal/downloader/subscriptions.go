package downloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
	"github.com/cesargomez89/ytmanager/internal/store"
)

var ErrAlreadySubscribed = errors.New("already subscribed")

// addSubscription resolves url through the provider registry and stores the
// resulting subscription for userID.
func addSubscription(ctx context.Context, svc *Services, userID int64, url string, folderID *int64) (*domain.Subscription, error) {
	sub, err := svc.Providers.FetchSubscription(ctx, strings.TrimSpace(url))
	if err != nil {
		return nil, err
	}

	existing, err := svc.Repo.FindSubscriptionByNativeID(userID, sub.ProviderID, sub.ProviderNativeID)
	if err == nil {
		return existing, fmt.Errorf("%w: %s", ErrAlreadySubscribed, existing.Name)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	sub.UserID = userID
	sub.ParentFolderID = folderID
	if _, err := svc.Repo.CreateSubscription(sub); err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	svc.Logger.Info("Subscription added", "subscription_id", sub.ID, "provider", sub.ProviderID, "name", sub.Name)
	return sub, nil
}

// ParseURLList splits an import list into URLs. Blank lines and lines
// starting with '#' are ignored.
func ParseURLList(text string) []string {
	var urls []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

// SubscriptionImportJob adds a list of subscriptions. A URL that fails is
// reported and skipped. Every imported subscription is then synchronized.
type SubscriptionImportJob struct {
	svc      *Services
	folderID *int64
	urls     []string
	userID   int64
}

func NewSubscriptionImportJob(svc *Services, userID int64, urls []string, folderID *int64) *SubscriptionImportJob {
	return &SubscriptionImportJob{svc: svc, userID: userID, urls: urls, folderID: folderID}
}

func (j *SubscriptionImportJob) Description() string {
	return fmt.Sprintf("Importing %d subscriptions", len(j.urls))
}

func (j *SubscriptionImportJob) Run(ctx context.Context, jc *scheduler.JobContext) error {
	jc.SetTotalSteps(float64(max(len(j.urls), 1)))

	imported := 0
	for _, url := range j.urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sub, err := addSubscription(ctx, j.svc, j.userID, url, j.folderID)
		if err != nil {
			jc.Logger.Warn("Import failed", "url", url, "error", err)
			jc.Warn(fmt.Sprintf("Could not import %s: %v", url, err))
			jc.Advance(1, "")
			continue
		}
		imported++
		if _, err := jc.Scheduler().RunNow(SubscriptionSyncSpec(j.svc, sub)); err != nil && !errors.Is(err, scheduler.ErrDuplicateJob) {
			jc.Logger.Warn("Failed to queue synchronization", "subscription_id", sub.ID, "error", err)
		}
		jc.Advance(1, "Imported "+sub.Name)
	}

	jc.Log(fmt.Sprintf("Imported %d of %d subscriptions", imported, len(j.urls)))
	return nil
}
