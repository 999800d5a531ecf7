package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pbriand/verifai/internal/engine"
	"github.com/pbriand/verifai/internal/model"
)

// Verifier runs one claim to a terminal or suspended state.
type Verifier interface {
	Verify(ctx context.Context, claimText string, opts engine.Options) (*model.Checkpoint, error)
}

// VerifyJob verifies a single claim
type VerifyJob struct {
	Claim    string
	Options  engine.Options
	Verifier Verifier
}

// Execute runs the claim through the verifier
func (j *VerifyJob) Execute(ctx context.Context) Result {
	cp, err := j.Verifier.Verify(ctx, j.Claim, j.Options)
	return &VerifyResult{
		Claim:      j.Claim,
		Checkpoint: cp,
		Error:      err,
	}
}

// VerifyResult is the outcome of one batched claim.
type VerifyResult struct {
	Claim      string
	Checkpoint *model.Checkpoint
	Error      error
}

// GetError returns the error from the verification
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchVerifier verifies many claims concurrently
type BatchVerifier struct {
	verifier    Verifier
	concurrency int
}

// NewBatchVerifier creates a new batch verifier
func NewBatchVerifier(verifier Verifier, concurrency int) *BatchVerifier {
	return &BatchVerifier{
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// VerifyClaims verifies the given claims concurrently. Each claim runs its
// own workflow instance; results arrive in completion order. Cancelling ctx
// interrupts in-flight verifications.
func (b *BatchVerifier) VerifyClaims(ctx context.Context, claims []string, opts engine.Options) []*VerifyResult {
	if len(claims) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, claim := range claims {
		pool.Submit(&VerifyJob{
			Claim:    claim,
			Options:  opts,
			Verifier: b.verifier,
		})
	}

	results := pool.Wait()

	verifyResults := make([]*VerifyResult, len(results))
	for i, result := range results {
		verifyResults[i] = result.(*VerifyResult)
	}

	return verifyResults
}

// VerifyFile reads claims from a file and verifies them concurrently
func (b *BatchVerifier) VerifyFile(ctx context.Context, filePath string, opts engine.Options) ([]*VerifyResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.VerifyClaims(ctx, claims, opts), nil
}

// ReadClaimsFromFile reads claims from a file (one per line), skipping
// blank lines and comments, deduplicating by normalized form.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key := model.NormalizeClaim(line)
		if !seen[key] {
			seen[key] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
