// Package dynamo implements a distcache.Index backed by DynamoDB.
//
// A distance matrix blob only becomes visible to readers once its record is
// written, which gives concurrent writers on eventually consistent object
// stores a single commit point per entry.
//
// Table schema:
//   - Partition key: name (string), the blob name of the entry
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name flowclust-distcache \
//	  --attribute-definitions AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=name,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamo
