package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// CallerIdentity holds the identity behind the active credentials
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}

// VerifyCallerIdentity calls STS GetCallerIdentity to confirm the
// configured credentials are valid before any mutating call is made
func VerifyCallerIdentity(ctx context.Context, client STSClientAPI) (*CallerIdentity, error) {
	tracer := otel.Tracer("vpcweaver")
	ctx, span := tracer.Start(ctx, "aws.VerifyCallerIdentity")
	defer span.End()

	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		span.RecordError(err)
		return nil, classifyCallError(err)
	}

	identity := &CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}
	span.SetAttributes(attribute.String("aws.account", identity.Account))
	return identity, nil
}
