package credentials

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"opensky-ingest/internal/apperr"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerStore reads credentials from an AWS Secrets Manager secret
// whose SecretString is a JSON object.
type SecretsManagerStore struct {
	client SecretsManagerAPI
}

func NewSecretsManagerStore(client SecretsManagerAPI) *SecretsManagerStore {
	return &SecretsManagerStore{client: client}
}

// NewSecretsManagerStoreFromConfig builds the store from a loaded AWS config.
func NewSecretsManagerStoreFromConfig(cfg aws.Config) *SecretsManagerStore {
	return NewSecretsManagerStore(secretsmanager.NewFromConfig(cfg))
}

func (s *SecretsManagerStore) GetCredentials(ctx context.Context, ref string) (Credentials, error) {
	if ref == "" {
		return Credentials{}, apperr.AuthUnavailable("secret reference is empty", nil)
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(ref),
	})
	if err != nil {
		return Credentials{}, apperr.AuthUnavailable("get secret value", err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return Credentials{}, apperr.AuthUnavailable("secret has no SecretString", nil)
	}

	return Parse(*out.SecretString)
}
