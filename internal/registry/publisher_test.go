package registry

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type recordingExec struct {
	calls [][]string
	// failFor maps an image ref appearing in the args to the number of
	// times its push should fail before succeeding.
	failFor   map[string]int
	failLogin bool
}

func (r *recordingExec) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)

	if len(args) > 0 && args[0] == "login" && r.failLogin {
		return nil, fmt.Errorf("unauthorized")
	}
	if len(args) > 1 && args[0] == "push" {
		for ref, remaining := range r.failFor {
			if strings.Contains(args[1], ref) && remaining > 0 {
				r.failFor[ref]--
				return nil, fmt.Errorf("connection reset")
			}
		}
	}
	return []byte("ok"), nil
}

func (r *recordingExec) countOp(op string) int {
	count := 0
	for _, call := range r.calls {
		if len(call) > 1 && call[1] == op {
			count++
		}
	}
	return count
}

func testCreds() Credentials {
	return Credentials{
		Registry: "registry.example.com",
		Username: "ci",
		Password: "secret",
	}
}

func TestPublishSuccess(t *testing.T) {
	fake := &recordingExec{}
	p := New(testCreds(), Options{}, fake.run)

	results, err := p.Publish(context.Background(), []string{"web:v1.0.0", "nginx:v1.0.0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if !result.Success {
			t.Errorf("expected success for %s: %s", result.ImageRef, result.Error)
		}
		if result.Attempts != 1 {
			t.Errorf("expected 1 attempt for %s, got %d", result.ImageRef, result.Attempts)
		}
	}

	if got := fake.countOp("login"); got != 1 {
		t.Errorf("expected 1 login, got %d", got)
	}
	if got := fake.countOp("logout"); got != 1 {
		t.Errorf("expected 1 logout, got %d", got)
	}
	if got := fake.countOp("push"); got != 2 {
		t.Errorf("expected 2 pushes, got %d", got)
	}
}

func TestPublishTagsForRemote(t *testing.T) {
	fake := &recordingExec{}
	p := New(testCreds(), Options{}, fake.run)

	if _, err := p.Publish(context.Background(), []string{"web:v1.0.0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var tagged bool
	for _, call := range fake.calls {
		if len(call) == 4 && call[1] == "tag" &&
			call[2] == "web:v1.0.0" && call[3] == "registry.example.com/web:v1.0.0" {
			tagged = true
		}
	}
	if !tagged {
		t.Errorf("expected tag to remote ref, calls: %v", fake.calls)
	}
}

func TestPublishRetriesThenSucceeds(t *testing.T) {
	fake := &recordingExec{failFor: map[string]int{"web": 2}}
	p := New(testCreds(), Options{}, fake.run)

	results, err := p.Publish(context.Background(), []string{"web:v1.0.0"})
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if results[0].Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", results[0].Attempts)
	}
	if !results[0].Success {
		t.Error("expected success")
	}
}

func TestPublishExhaustsRetries(t *testing.T) {
	fake := &recordingExec{failFor: map[string]int{"web": 10}}
	p := New(testCreds(), Options{}, fake.run)

	results, err := p.Publish(context.Background(), []string{"web:v1.0.0", "nginx:v1.0.0"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1 of 2 push(es) failed") {
		t.Errorf("unexpected error: %v", err)
	}

	// The failed image used all attempts; the sibling still pushed.
	if results[0].Success || results[0].Attempts != 3 {
		t.Errorf("expected 3 failed attempts for web, got %+v", results[0])
	}
	if !results[1].Success {
		t.Error("expected nginx push to proceed after web failed")
	}

	// Logout still ran.
	if got := fake.countOp("logout"); got != 1 {
		t.Errorf("expected logout after failed pushes, got %d", got)
	}
}

func TestPublishLoginFailureAborts(t *testing.T) {
	fake := &recordingExec{failLogin: true}
	p := New(testCreds(), Options{}, fake.run)

	_, err := p.Publish(context.Background(), []string{"web:v1.0.0"})
	if err == nil || !strings.Contains(err.Error(), "login failed") {
		t.Fatalf("expected login error, got %v", err)
	}
	if got := fake.countOp("push"); got != 0 {
		t.Errorf("expected no pushes after failed login, got %d", got)
	}
}

func TestPublishEmpty(t *testing.T) {
	fake := &recordingExec{}
	p := New(testCreds(), Options{}, fake.run)

	if _, err := p.Publish(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty image list")
	}
	if len(fake.calls) != 0 {
		t.Errorf("expected no invocations, got %d", len(fake.calls))
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	env := map[string]string{
		"BUILDGATE_REGISTRY":          "registry.example.com",
		"BUILDGATE_REGISTRY_USER":     "ci",
		"BUILDGATE_REGISTRY_PASSWORD": "secret",
	}
	creds, err := CredentialsFromEnv(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Registry != "registry.example.com" || creds.Username != "ci" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
}

func TestCredentialsFromEnvMissing(t *testing.T) {
	env := map[string]string{
		"BUILDGATE_REGISTRY": "registry.example.com",
	}
	_, err := CredentialsFromEnv(func(key string) string { return env[key] })
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "BUILDGATE_REGISTRY_USER") ||
		!strings.Contains(err.Error(), "BUILDGATE_REGISTRY_PASSWORD") {
		t.Errorf("expected missing variables named, got %v", err)
	}
}
