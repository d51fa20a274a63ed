package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/subculture-collective/masquerade/db"
)

// fakeStore is an in-memory Store for dispatcher tests.
type fakeStore struct {
	mu         sync.Mutex
	identities map[string]db.Identity // key: "<user>/<keyword>"
	switches   map[uint64]string
	provenance map[uint64]uint64 // relayed message id -> user id

	switchErr   error // injected into ActiveSwitch
	identityErr error // injected into Identity
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		identities: make(map[string]db.Identity),
		switches:   make(map[uint64]string),
		provenance: make(map[uint64]uint64),
	}
}

func identityKey(userID uint64, keyword string) string {
	return fmt.Sprintf("%d/%s", userID, keyword)
}

func (f *fakeStore) ActiveSwitch(_ context.Context, userID uint64) (string, bool, error) {
	if f.switchErr != nil {
		return "", false, f.switchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kw, ok := f.switches[userID]
	return kw, ok, nil
}

func (f *fakeStore) SetActiveSwitch(_ context.Context, userID uint64, keyword string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switches[userID] = keyword
}

func (f *fakeStore) ClearActiveSwitch(_ context.Context, userID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.switches, userID)
}

func (f *fakeStore) RecordRelayedMessage(_ context.Context, messageID, userID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provenance[messageID] = userID
}

func (f *fakeStore) Identities(_ context.Context, userID uint64) []db.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Identity
	for k, ident := range f.identities {
		if k == identityKey(userID, ident.Keyword) {
			out = append(out, ident)
		}
	}
	return out
}

func (f *fakeStore) Identity(_ context.Context, userID uint64, keyword string) (db.Identity, bool, error) {
	if f.identityErr != nil {
		return db.Identity{}, false, f.identityErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ident, ok := f.identities[identityKey(userID, keyword)]
	return ident, ok, nil
}

func (f *fakeStore) AddIdentity(_ context.Context, userID uint64, keyword, nick, avatar string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[identityKey(userID, keyword)] = db.Identity{Keyword: keyword, Nick: nick, Avatar: avatar}
}

func (f *fakeStore) RemoveIdentity(_ context.Context, userID uint64, keyword string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.identities, identityKey(userID, keyword))
}

// relayedPost captures one message posted through a fake webhook.
type relayedPost struct {
	ChannelID string
	Nick      string
	AvatarURL string
	Content   string
	Audit     string
}

// fakeTransport records everything the dispatcher does with the platform.
type fakeTransport struct {
	mu          sync.Mutex
	said        []string
	posts       []relayedPost
	deleted     []uint64
	hooksOpen   int // webhooks created minus webhooks deleted
	nextMsgID   uint64
	displayName string

	postErr     error // injected into Webhook.Post
	createErr   error // injected into CreateWebhook
	deleteErr   error // injected into DeleteMessage
	teardownErr error // injected into Webhook.Delete
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nextMsgID: 1000, displayName: "tester"}
}

func (f *fakeTransport) Say(_ context.Context, _ string, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, content)
	return nil
}

func (f *fakeTransport) CreateWebhook(_ context.Context, channelID, _, auditReason string) (Webhook, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooksOpen++
	return &fakeWebhook{tp: f, channelID: channelID, audit: auditReason}, nil
}

func (f *fakeTransport) DeleteMessage(_ context.Context, _ string, messageID uint64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeTransport) DisplayName(_ context.Context, _ uint64) (string, error) {
	return f.displayName, nil
}

type fakeWebhook struct {
	tp        *fakeTransport
	channelID string
	audit     string
}

func (w *fakeWebhook) Post(_ context.Context, nick, avatarURL, content string) (uint64, error) {
	if w.tp.postErr != nil {
		return 0, w.tp.postErr
	}
	w.tp.mu.Lock()
	defer w.tp.mu.Unlock()
	w.tp.nextMsgID++
	w.tp.posts = append(w.tp.posts, relayedPost{
		ChannelID: w.channelID,
		Nick:      nick,
		AvatarURL: avatarURL,
		Content:   content,
		Audit:     w.audit,
	})
	return w.tp.nextMsgID, nil
}

func (w *fakeWebhook) Delete(_ context.Context) error {
	if w.tp.teardownErr != nil {
		return w.tp.teardownErr
	}
	w.tp.mu.Lock()
	defer w.tp.mu.Unlock()
	w.tp.hooksOpen--
	return nil
}
