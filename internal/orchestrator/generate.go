package orchestrator

import (
	"context"

	"inferd/internal/gemini"
	"inferd/pkg/types"
)

// Generate routes a completion request to the active backend. modelOverride
// may be empty to use the current selection. The chosen model is not
// validated up front; an execution failure here is the deferred validation.
func (o *Orchestrator) Generate(ctx context.Context, modelOverride, prompt string) (types.GenerateResponse, error) {
	o.mu.RLock()
	model := modelOverride
	if model == "" {
		model = o.selected
	}
	useLocal := o.state == types.BackendLocalReady && model != o.cfg.CloudModelID && model != ""
	o.mu.RUnlock()

	if useLocal {
		text, err := o.local.Generate(ctx, model, prompt)
		if err != nil {
			return types.GenerateResponse{}, err
		}
		return types.GenerateResponse{Response: text, Backend: BackendLocal, Model: model}, nil
	}

	key, err := o.creds.Load()
	if err != nil {
		return types.GenerateResponse{}, err
	}
	if key == "" {
		return types.GenerateResponse{}, credentialMissingError{}
	}
	text, err := o.cloud.Generate(ctx, key, prompt)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	return types.GenerateResponse{Response: text, Backend: BackendCloud, Model: o.cfg.CloudModelID}, nil
}

// TestCredential classifies a candidate key without storing it.
func (o *Orchestrator) TestCredential(ctx context.Context, key string) gemini.CheckResult {
	return o.cloud.TestConnection(ctx, key)
}

// SaveCredential persists the key and, if the machine was resting in
// local_unavailable, lets it settle into cloud_fallback on the next probe.
func (o *Orchestrator) SaveCredential(key string) error {
	if err := o.creds.Save(key); err != nil {
		return err
	}
	o.mu.RLock()
	state, reason := o.state, o.reason
	o.mu.RUnlock()
	if state == types.BackendLocalUnavailable && key != "" {
		o.setState(types.BackendCloudFallback, reason)
	}
	return nil
}
