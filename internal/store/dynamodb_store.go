package store

import (
	"encoding/json"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/imposter-project/contract-shim/pkg/logger"
)

// DynamoDBStoreProvider keeps all stores in a single table keyed by StoreName (hash) and Key (range).
type DynamoDBStoreProvider struct {
	ddb       *dynamodb.DynamoDB
	tableName string
}

func (p *DynamoDBStoreProvider) InitStores() {
	sess := session.Must(session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
	}))
	p.ddb = dynamodb.New(sess)
	p.tableName = os.Getenv("SHIM_STORE_DYNAMODB_TABLE")
}

func (p *DynamoDBStoreProvider) itemKey(storeName, key string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"StoreName": {S: aws.String(storeName)},
		"Key":       {S: aws.String(key)},
	}
}

func (p *DynamoDBStoreProvider) GetValue(storeName, key string) (interface{}, bool) {
	key = applyKeyPrefix(key)
	result, err := p.ddb.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(p.tableName),
		Key:       p.itemKey(storeName, key),
	})
	if err != nil {
		logger.Errorf("failed to get item: %v", err)
		return nil, false
	}
	if result.Item == nil || result.Item["Value"] == nil || result.Item["Value"].S == nil {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal([]byte(*result.Item["Value"].S), &value); err != nil {
		logger.Errorf("failed to unmarshal value: %v", err)
		return nil, false
	}
	return value, true
}

func (p *DynamoDBStoreProvider) StoreValue(storeName, key string, value interface{}) {
	key = applyKeyPrefix(key)
	valueBytes, err := json.Marshal(value)
	if err != nil {
		logger.Errorf("failed to marshal value: %v", err)
		return
	}
	item := p.itemKey(storeName, key)
	item["Value"] = &dynamodb.AttributeValue{S: aws.String(string(valueBytes))}
	_, err = p.ddb.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item:      item,
	})
	if err != nil {
		logger.Errorf("failed to put item: %v", err)
	}
}

func (p *DynamoDBStoreProvider) query(storeName, keyPrefix string) ([]map[string]*dynamodb.AttributeValue, error) {
	var items []map[string]*dynamodb.AttributeValue
	err := p.ddb.QueryPages(&dynamodb.QueryInput{
		TableName:              aws.String(p.tableName),
		KeyConditionExpression: aws.String("StoreName = :storeName AND begins_with(#k, :keyPrefix)"),
		ExpressionAttributeNames: map[string]*string{
			"#k": aws.String("Key"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":storeName": {S: aws.String(storeName)},
			":keyPrefix": {S: aws.String(keyPrefix)},
		},
	}, func(page *dynamodb.QueryOutput, _ bool) bool {
		items = append(items, page.Items...)
		return true
	})
	return items, err
}

func (p *DynamoDBStoreProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	result, err := p.query(storeName, applyKeyPrefix(keyPrefix))
	if err != nil {
		logger.Errorf("failed to query items: %v", err)
		return nil
	}
	items := make(map[string]interface{})
	for _, item := range result {
		if item["Value"] == nil || item["Value"].S == nil {
			continue
		}
		var value interface{}
		if err := json.Unmarshal([]byte(*item["Value"].S), &value); err != nil {
			logger.Errorf("failed to unmarshal value: %v", err)
			continue
		}
		items[removeKeyPrefix(*item["Key"].S)] = value
	}
	return items
}

func (p *DynamoDBStoreProvider) DeleteValue(storeName, key string) {
	key = applyKeyPrefix(key)
	_, err := p.ddb.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(p.tableName),
		Key:       p.itemKey(storeName, key),
	})
	if err != nil {
		logger.Errorf("failed to delete item: %v", err)
	}
}

// DeleteStore removes every item belonging to the store, one at a time.
func (p *DynamoDBStoreProvider) DeleteStore(storeName string) {
	items, err := p.query(storeName, getStoreKeyPrefix())
	if err != nil {
		logger.Errorf("failed to query items for deletion: %v", err)
		return
	}
	for _, item := range items {
		_, err := p.ddb.DeleteItem(&dynamodb.DeleteItemInput{
			TableName: aws.String(p.tableName),
			Key: map[string]*dynamodb.AttributeValue{
				"StoreName": item["StoreName"],
				"Key":       item["Key"],
			},
		})
		if err != nil {
			logger.Errorf("failed to delete item: %v", err)
		}
	}
}
