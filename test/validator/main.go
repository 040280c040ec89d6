// nolint: forbidigo
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	courierSqs "github.com/jademcosta/courier/pkg/adapters/externalqueue/sqs"
)

var characters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = characters[rand.Intn(len(characters))]
	}
	return string(b)
}

func exitOnErr(msg string, err error) {
	if err != nil {
		fmt.Println(msg, err)
		os.Exit(1)
	}
}

func main() {
	queueURL := flag.String("q", "", "The URL of the queue")
	sourceRoot := flag.String("s", "", "The source root configured on courier")
	apiURL := flag.String("a", "http://localhost:9010", "The courier API address")
	endpoint := flag.String("e", "http://localhost:4566", "The endpoint of the local AWS stack")
	flag.Parse()

	if *queueURL == "" || *sourceRoot == "" {
		fmt.Println("You must supply the URL of a queue (-q QUEUE) and the source root (-s DIR)")
		os.Exit(1)
	}

	expected := randSeq(4096)
	fileName := fmt.Sprintf("validator-%d.txt", time.Now().UnixNano())
	err := os.WriteFile(filepath.Join(*sourceRoot, fileName), []byte(expected), 0o600)
	exitOnErr("Failed to write the source file: ", err)

	fmt.Println("Requesting upload...")
	body := fmt.Sprintf(`{"uploads":[{"source":%q,"destination":%q}]}`, fileName, "validator/"+fileName)
	response, err := http.Post(*apiURL+"/v1/buffers/1/uploads", "application/json", strings.NewReader(body))
	exitOnErr("Failed to request the upload: ", err)
	response.Body.Close()
	if response.StatusCode != http.StatusAccepted {
		fmt.Println("Upload request was not accepted, status: ", response.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Starting validator...")
	fmt.Println("Important: This test does not work well if running in parallel with another instance of itself. It expects a single message on SQS!")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithBaseEndpoint(*endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	exitOnErr("Failed to load AWS config: ", err)

	svc := sqs.NewFromConfig(cfg)
	msgResult, err := svc.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            queueURL,
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     20,
	})
	exitOnErr("Error getting message from SQS: ", err)

	if len(msgResult.Messages) < 1 {
		fmt.Println("No message returned from SQS")
		os.Exit(1)
	}

	message := msgResult.Messages[0]
	fmt.Println("The first message from SQS is: ", aws.ToString(message.Body))

	_, err = svc.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      queueURL,
		ReceiptHandle: message.ReceiptHandle,
	})
	exitOnErr("Error deleting the message from queue. This might make future runs of this test fail. Err: ", err)

	content := &courierSqs.Message{}
	err = json.Unmarshal([]byte(aws.ToString(message.Body)), content)
	exitOnErr("Failed to parse the SQS body JSON: ", err)

	expectedBucketName := os.Getenv("COURIER_S3_BUCKET")
	if content.Bucket.Name != expectedBucketName {
		fmt.Println("Expected bucket name to be ", expectedBucketName, " but was ", content.Bucket.Name)
		os.Exit(1)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	buf := manager.NewWriteAtBuffer([]byte{})
	_, err = manager.NewDownloader(s3Client).Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(content.Bucket.Name),
		Key:    aws.String(content.Object.Path),
	})
	exitOnErr("Failed to download the S3 file, err: ", err)

	if string(buf.Bytes()) != expected {
		fmt.Printf("Content inside S3 file is not the expected one. Expected %d bytes, got %d\n", len(expected), len(buf.Bytes()))
		os.Exit(1)
	}
	fmt.Println("Expected content is correct!")
}
