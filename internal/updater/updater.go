package updater

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	update "github.com/inconshreveable/go-update"

	"github.com/RowanDark/rotor/internal/logging"
)

// Updater swaps the binary at ExecPath (default: the running executable).
type Updater struct {
	Store      *Store
	HTTPClient *http.Client
	BaseURL    string
	ExecPath   string
	Version    string
	Logger     *logging.AuditLogger
}

// Options controls one update.
type Options struct {
	Channel Channel
	// Persist records Channel as the preferred channel.
	Persist bool
}

// Result summarises an update or rollback.
type Result struct {
	From    string
	To      string
	Channel Channel
	Delta   bool
	Skipped bool
}

// Check fetches and verifies the manifest for ch.
func (u *Updater) Check(ctx context.Context, ch Channel) (Manifest, error) {
	target, err := manifestURL(u.BaseURL, ch)
	if err != nil {
		return Manifest{}, err
	}
	data, err := fetch(ctx, u.httpClient(), target, u.userAgent())
	if err != nil {
		return Manifest{}, err
	}
	sig, err := fetch(ctx, u.httpClient(), target+".sig", u.userAgent())
	if err != nil {
		return Manifest{}, fmt.Errorf("download manifest signature: %w", err)
	}
	key, err := PublicKey()
	if err != nil {
		return Manifest{}, err
	}
	if err := VerifyManifest(key, data, sig); err != nil {
		return Manifest{}, err
	}
	return ParseManifest(data)
}

// Update installs the newest build of opts.Channel. A matching delta is
// tried first and a full download is used when it fails.
func (u *Updater) Update(ctx context.Context, opts Options) (Result, error) {
	if u.Store == nil {
		return Result{}, errors.New("nil updater store")
	}
	ch, err := ParseChannel(string(opts.Channel))
	if err != nil {
		return Result{}, err
	}
	st, err := u.Store.Load()
	if err != nil {
		return Result{}, err
	}

	current := u.version()
	res := Result{From: current, Channel: ch}

	manifest, err := u.Check(ctx, ch)
	if err != nil {
		u.audit(logging.DecisionDeny, err.Error(), res)
		return res, err
	}
	res.To = manifest.Version

	if manifest.Version == current || st.CurrentVersion == manifest.Version {
		res.Skipped = true
		if opts.Persist {
			st.Channel = ch
			if err := u.Store.Save(st); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	build, ok := manifest.Build(runtime.GOOS, runtime.GOARCH)
	if !ok {
		return res, fmt.Errorf("no build for %s/%s in manifest %s", runtime.GOOS, runtime.GOARCH, manifest.Version)
	}
	checksum, err := decodeChecksum(build.Full.SHA256)
	if err != nil {
		return res, fmt.Errorf("full artifact: %w", err)
	}
	base, err := u.applyOptions(checksum)
	if err != nil {
		return res, err
	}

	var applyErr error
	if build.Delta != nil && (build.Delta.From == current || build.Delta.From == st.CurrentVersion) {
		if applyErr = u.applyPatch(ctx, *build.Delta, base); applyErr == nil {
			res.Delta = true
		}
	}
	if !res.Delta {
		applyErr = u.applyFull(ctx, build.Full, base)
	}
	if applyErr != nil {
		if st.Channel == Beta {
			st.Channel = Stable
			_ = u.Store.Save(st)
		}
		u.audit(logging.DecisionDeny, applyErr.Error(), res)
		return res, applyErr
	}

	st.PreviousVersion = current
	st.CurrentVersion = manifest.Version
	st.BackupPath = base.OldSavePath
	st.AppliedAt = time.Now().UTC()
	if opts.Persist {
		st.Channel = ch
	}
	if err := u.Store.Save(st); err != nil {
		return res, err
	}
	u.audit(logging.DecisionAllow, "", res)
	return res, nil
}

// Rollback reinstalls the binary saved by the last update. With
// forceStable the preferred channel is reset to Stable.
func (u *Updater) Rollback(ctx context.Context, forceStable bool) (Result, error) {
	if u.Store == nil {
		return Result{}, errors.New("nil updater store")
	}
	st, err := u.Store.Load()
	if err != nil {
		return Result{}, err
	}
	if st.BackupPath == "" {
		return Result{}, errors.New("no rollback backup recorded")
	}
	backup, err := os.ReadFile(st.BackupPath)
	if err != nil {
		return Result{}, fmt.Errorf("read backup binary: %w", err)
	}
	sum := sha256.Sum256(backup)
	opts, err := u.applyOptions(sum[:])
	if err != nil {
		return Result{}, err
	}
	if err := apply(bytes.NewReader(backup), opts, "rollback"); err != nil {
		return Result{}, err
	}

	res := Result{From: st.CurrentVersion, To: st.PreviousVersion, Channel: st.Channel}
	st.CurrentVersion, st.PreviousVersion = st.PreviousVersion, st.CurrentVersion
	st.AppliedAt = time.Now().UTC()
	if forceStable {
		st.Channel = Stable
		res.Channel = Stable
	}
	if err := u.Store.Save(st); err != nil {
		return res, err
	}
	u.audit(logging.DecisionAllow, "rollback", res)
	return res, nil
}

func (u *Updater) applyOptions(checksum []byte) (update.Options, error) {
	execPath := strings.TrimSpace(u.ExecPath)
	if execPath == "" {
		var err error
		if execPath, err = os.Executable(); err != nil {
			return update.Options{}, fmt.Errorf("determine executable path: %w", err)
		}
	}
	info, err := os.Stat(execPath)
	if err != nil {
		return update.Options{}, fmt.Errorf("stat executable: %w", err)
	}
	opts := update.Options{
		TargetPath:  execPath,
		TargetMode:  info.Mode(),
		Checksum:    checksum,
		Hash:        crypto.SHA256,
		OldSavePath: filepath.Join(u.Store.Dir(), "rotorctl.previous"),
	}
	if err := opts.CheckPermissions(); err != nil {
		return update.Options{}, fmt.Errorf("cannot update %s: %w", execPath, err)
	}
	return opts, nil
}

func (u *Updater) applyPatch(ctx context.Context, p Patch, opts update.Options) error {
	data, err := fetch(ctx, u.httpClient(), p.URL, u.userAgent())
	if err != nil {
		return fmt.Errorf("download delta: %w", err)
	}
	want, err := decodeChecksum(p.SHA256)
	if err != nil {
		return fmt.Errorf("delta: %w", err)
	}
	if got := sha256.Sum256(data); !bytes.Equal(got[:], want) {
		return fmt.Errorf("delta checksum mismatch: got %x want %x", got, want)
	}
	opts.Patcher = update.NewBSDiffPatcher()
	return apply(bytes.NewReader(data), opts, "delta update")
}

func (u *Updater) applyFull(ctx context.Context, a Artifact, opts update.Options) error {
	data, err := fetch(ctx, u.httpClient(), a.URL, u.userAgent())
	if err != nil {
		return fmt.Errorf("download full artifact: %w", err)
	}
	return apply(bytes.NewReader(data), opts, "update")
}

func apply(r *bytes.Reader, opts update.Options, what string) error {
	if err := update.Apply(r, opts); err != nil {
		if rerr := update.RollbackError(err); rerr != nil {
			return fmt.Errorf("%s: %v (restoring previous binary failed: %v)", what, err, rerr)
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (u *Updater) audit(decision logging.Decision, reason string, res Result) {
	if u.Logger == nil {
		return
	}
	_ = u.Logger.Emit(logging.AuditEvent{
		EventType: logging.EventSelfUpdate,
		Decision:  decision,
		Reason:    reason,
		Metadata: map[string]any{
			"from":    res.From,
			"to":      res.To,
			"channel": string(res.Channel),
			"delta":   res.Delta,
		},
	})
}

func (u *Updater) httpClient() *http.Client {
	if u.HTTPClient != nil {
		return u.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (u *Updater) version() string {
	if v := strings.TrimSpace(u.Version); v != "" {
		return v
	}
	return "dev"
}

func (u *Updater) userAgent() string {
	return fmt.Sprintf("rotorctl/%s (%s/%s)", u.version(), runtime.GOOS, runtime.GOARCH)
}
