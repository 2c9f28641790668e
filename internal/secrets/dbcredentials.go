package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"golang.org/x/sync/singleflight"
)

var ErrEmptySecret = errors.New("secrets: secret has no string value")

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// DBCredentials is the JSON document stored for an RDS-style database secret.
type DBCredentials struct {
	Engine   string      `json:"engine"`
	Host     string      `json:"host"`
	Port     json.Number `json:"port"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	DBName   string      `json:"dbname"`
}

// PortNumber returns the port, or 0 when the secret does not carry one.
func (c *DBCredentials) PortNumber() (int, error) {
	if c.Port == "" {
		return 0, nil
	}
	n, err := c.Port.Int64()
	if err != nil {
		return 0, fmt.Errorf("secrets: port %q: %w", c.Port, err)
	}
	return int(n), nil
}

// DBCredentialLoader fetches database credentials once per process.
// Concurrent callers share a single in-flight request and later callers get
// the cached value.
type DBCredentialLoader struct {
	client  SecretsManagerAPI
	arn     string
	timeout time.Duration

	group  singleflight.Group
	mu     sync.RWMutex
	cached *DBCredentials
}

func NewDBCredentialLoader(client SecretsManagerAPI, arn string, timeout time.Duration) *DBCredentialLoader {
	return &DBCredentialLoader{client: client, arn: arn, timeout: timeout}
}

func (l *DBCredentialLoader) Load(ctx context.Context) (*DBCredentials, error) {
	l.mu.RLock()
	cached := l.cached
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := l.group.Do(l.arn, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		creds, err := l.fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cached = creds
		l.mu.Unlock()
		return creds, nil
	})
	if err != nil {
		return nil, fmt.Errorf("secrets.DBCredentialLoader.Load: %w", err)
	}
	return v.(*DBCredentials), nil
}

func (l *DBCredentialLoader) fetch(ctx context.Context) (*DBCredentials, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	out, err := l.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(l.arn),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret value: %w", err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return nil, ErrEmptySecret
	}

	var creds DBCredentials
	if err := json.Unmarshal([]byte(*out.SecretString), &creds); err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	return &creds, nil
}
