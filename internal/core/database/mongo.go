package database

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoOpts struct {
	URI         string
	Username    string
	Password    string
	MaxPoolSize int
	Timeout     time.Duration
}

// NewMongo 只构造客户端，不会真正连上；连通性由 Ping 判断
func NewMongo(o MongoOpts) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(o.URI).
		SetAppName("formcraft")
	if o.Username != "" {
		opts.SetAuth(options.Credential{Username: o.Username, Password: o.Password})
	}
	if o.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(o.MaxPoolSize))
	}
	if o.Timeout > 0 {
		opts.SetServerSelectionTimeout(o.Timeout).SetConnectTimeout(o.Timeout)
	}
	return mongo.Connect(opts)
}
