package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imamik/stackctl/internal/provisioning"
)

// DNS implements provisioning.DNSAPI on one Cloudflare zone. The zone is
// given by ID or looked up by domain.
type DNS struct {
	client *Client
	zoneID string
	domain string
}

var _ provisioning.DNSAPI = (*DNS)(nil)

// NewDNS returns a DNS adapter. Either zoneID or domain must be set.
func NewDNS(client *Client, zoneID, domain string) *DNS {
	return &DNS{client: client, zoneID: zoneID, domain: strings.TrimSuffix(domain, ".")}
}

// FindZone returns the configured zone ID, resolving it from the domain
// when only the domain is configured.
func (d *DNS) FindZone(ctx context.Context) (string, error) {
	if d.zoneID != "" {
		return d.zoneID, nil
	}
	if d.domain == "" {
		return "", &provisioning.ValidationError{Field: "dns", Message: "cloudflare needs a zone id or a domain"}
	}
	zone, err := d.client.GetZone(ctx, d.domain)
	if err != nil {
		return "", err
	}
	if zone == nil {
		return "", fmt.Errorf("zone for %s: %w", d.domain, provisioning.ErrNotFound)
	}
	return zone.ID, nil
}

// ZoneDomain implements provisioning.DNSAPI.
func (d *DNS) ZoneDomain(ctx context.Context, zoneID string) (string, error) {
	zone, err := d.client.GetZoneByID(ctx, zoneID)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return "", errors.Join(provisioning.ErrNotFound, err)
		}
		return "", err
	}
	return zone.Name, nil
}

// UpsertRecord creates the record or overwrites an existing one of the
// same name and type.
func (d *DNS) UpsertRecord(ctx context.Context, zoneID string, record provisioning.Record) error {
	existing, err := d.client.ListDNSRecords(ctx, zoneID, record.Name)
	if err != nil {
		return err
	}

	want := Record{
		Type:    record.Type,
		Name:    record.Name,
		Content: record.Value,
		TTL:     record.TTL,
	}
	for _, r := range existing {
		if r.Type == record.Type {
			return d.client.UpdateDNSRecord(ctx, zoneID, r.ID, want)
		}
	}
	_, err = d.client.CreateDNSRecord(ctx, zoneID, want)
	return err
}

// FindRecord returns the first record named name.
func (d *DNS) FindRecord(ctx context.Context, zoneID, name string) (*provisioning.Record, error) {
	records, err := d.client.ListDNSRecords(ctx, zoneID, name)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("record %s: %w", name, provisioning.ErrNotFound)
	}
	r := records[0]
	return &provisioning.Record{Name: r.Name, Type: r.Type, Value: r.Content, TTL: r.TTL}, nil
}

// DeleteRecord implements provisioning.DNSAPI.
func (d *DNS) DeleteRecord(ctx context.Context, zoneID, name string) error {
	records, err := d.client.ListDNSRecords(ctx, zoneID, name)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("record %s: %w", name, provisioning.ErrNotFound)
	}
	for _, r := range records {
		if err := d.client.DeleteDNSRecord(ctx, zoneID, r.ID); err != nil {
			return err
		}
	}
	return nil
}
