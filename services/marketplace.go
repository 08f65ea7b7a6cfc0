package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/sirupsen/logrus"
)

type CategoryHint string

const (
	HintShoes   CategoryHint = "shoes"
	HintFashion CategoryHint = "fashion"
	HintJewelry CategoryHint = "jewelry"
	HintBags    CategoryHint = "bags"
	HintAll     CategoryHint = "all"
)

// RawListing is one marketplace result as decoded JSON. Fields vary between shapes.
type RawListing = map[string]any

type MarketplaceSearcher interface {
	Configured() bool
	Search(ctx context.Context, query string, hint CategoryHint, maxResults int) ([]RawListing, error)
}

const (
	paapiService = "ProductAdvertisingAPI"
	paapiTarget  = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems"
	paapiPath    = "/paapi5/searchitems"
)

var searchIndexes = map[CategoryHint]string{
	HintShoes:   "Fashion",
	HintFashion: "Fashion",
	HintJewelry: "Fashion",
	HintBags:    "Luggage",
	HintAll:     "All",
}

// AmazonMarketplaceClient calls PA-API 5 SearchItems, signed with SigV4.
type AmazonMarketplaceClient struct {
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Host        string
	Region      string
	Marketplace string
	HTTPClient  *http.Client
	signer      *v4.Signer
}

func NewAmazonMarketplaceClient(accessKey, secretKey, partnerTag, host, region, marketplace string) *AmazonMarketplaceClient {
	return &AmazonMarketplaceClient{
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		PartnerTag:  partnerTag,
		Host:        host,
		Region:      region,
		Marketplace: marketplace,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		signer:      v4.NewSigner(),
	}
}

func (c *AmazonMarketplaceClient) Configured() bool {
	return c != nil && c.AccessKey != "" && c.SecretKey != "" && c.PartnerTag != ""
}

func (c *AmazonMarketplaceClient) Search(ctx context.Context, query string, hint CategoryHint, maxResults int) ([]RawListing, error) {
	if maxResults <= 0 || maxResults > 10 {
		maxResults = 10
	}
	index, ok := searchIndexes[hint]
	if !ok {
		index = "All"
	}
	payload, err := json.Marshal(map[string]any{
		"Keywords":    query,
		"SearchIndex": index,
		"ItemCount":   maxResults,
		"PartnerTag":  c.PartnerTag,
		"PartnerType": "Associates",
		"Marketplace": c.Marketplace,
		"Resources": []string{
			"ItemInfo.Title",
			"Images.Primary.Large",
			"Offers.Listings.Price",
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+c.Host+paapiPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", paapiTarget)
	req.Host = c.Host

	hash := sha256.Sum256(payload)
	creds := aws.Credentials{AccessKeyID: c.AccessKey, SecretAccessKey: c.SecretKey}
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(hash[:]), paapiService, c.Region, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("sign marketplace request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &MatchingError{Cause: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &MatchingError{Cause: err}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &MatchingError{Cause: fmt.Errorf("marketplace returned %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		logrus.WithFields(logrus.Fields{"status": resp.StatusCode, "body": logSnippet(string(body))}).Warn("marketplace search rejected")
		return nil, fmt.Errorf("marketplace returned %d", resp.StatusCode)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode marketplace response: %w", err)
	}
	items, _ := lookup(decoded, "SearchResult", "Items").([]any)
	listings := make([]RawListing, 0, len(items))
	for _, item := range items {
		if listing, ok := item.(map[string]any); ok {
			listings = append(listings, listing)
		}
	}
	return listings, nil
}
