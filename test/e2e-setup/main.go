// nolint: forbidigo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	queue := flag.String("q", "", "The name of the queue")
	bucket := flag.String("b", "courier-local-bucket", "The name of the bucket")
	endpoint := flag.String("e", "http://localhost:4566", "The endpoint of the local AWS stack")
	flag.Parse()

	if *queue == "" {
		fmt.Println("You must supply a queue name (-q QUEUE)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithBaseEndpoint(*endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		fmt.Println("Failed to load AWS config: ", err)
		os.Exit(1)
	}

	fmt.Printf("Creating queue %s\n", *queue)
	sqsSvc := sqs.NewFromConfig(cfg)
	_, err = sqsSvc.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: queue,
		Attributes: map[string]string{
			"DelaySeconds":           "10",
			"MessageRetentionPeriod": "120",
		},
	})
	if err != nil {
		fmt.Println("Failed to create queue: ", err)
		os.Exit(1)
	}

	fmt.Printf("Creating bucket %s\n", *bucket)
	s3Svc := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	_, err = s3Svc.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(*bucket),
	})
	if err != nil {
		fmt.Println("Failed to create bucket: ", err)
		os.Exit(1)
	}

	err = s3.NewBucketExistsWaiter(s3Svc).Wait(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(*bucket),
	}, 20*time.Second)
	if err != nil {
		fmt.Println("Bucket did not become available: ", err)
		os.Exit(1)
	}
}
