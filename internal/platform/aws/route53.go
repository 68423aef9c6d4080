package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/imamik/stackctl/internal/provisioning"
	"github.com/imamik/stackctl/internal/util/labels"
)

const hostedZonePrefix = "/hostedzone/"

// FindZone returns the id of the hosted zone tagged with the account tag.
func (c *Client) FindZone(ctx context.Context) (string, error) {
	paginator := route53.NewListHostedZonesPaginator(c.route53, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", mapError("failed to list hosted zones", err)
		}
		for _, zone := range page.HostedZones {
			id := strings.TrimPrefix(aws.ToString(zone.Id), hostedZonePrefix)
			out, err := c.route53.ListTagsForResource(ctx, &route53.ListTagsForResourceInput{
				ResourceType: r53types.TagResourceTypeHostedzone,
				ResourceId:   aws.String(id),
			})
			if err != nil {
				return "", mapError(fmt.Sprintf("failed to list tags of hosted zone %s", id), err)
			}
			if out.ResourceTagSet == nil {
				continue
			}
			for _, tag := range out.ResourceTagSet.Tags {
				if aws.ToString(tag.Key) == labels.KeyAccount && aws.ToString(tag.Value) == c.settings.AccountTag {
					return id, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no hosted zone tagged %s=%s: %w", labels.KeyAccount, c.settings.AccountTag, provisioning.ErrNotFound)
}

// ZoneDomain returns the apex domain of zoneID with its trailing dot.
func (c *Client) ZoneDomain(ctx context.Context, zoneID string) (string, error) {
	out, err := c.route53.GetHostedZone(ctx, &route53.GetHostedZoneInput{Id: aws.String(zoneID)})
	if err != nil {
		return "", mapError(fmt.Sprintf("failed to get hosted zone %s", zoneID), err)
	}
	return aws.ToString(out.HostedZone.Name), nil
}

// UpsertRecord creates or replaces the record.
func (c *Client) UpsertRecord(ctx context.Context, zoneID string, record provisioning.Record) error {
	err := c.create(ctx, func(ctx context.Context) error {
		_, err := c.route53.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(zoneID),
			ChangeBatch: &r53types.ChangeBatch{
				Changes: []r53types.Change{{
					Action: r53types.ChangeActionUpsert,
					ResourceRecordSet: &r53types.ResourceRecordSet{
						Name:            aws.String(fqdn(record.Name)),
						Type:            r53types.RRType(record.Type),
						TTL:             aws.Int64(record.TTL),
						ResourceRecords: []r53types.ResourceRecord{{Value: aws.String(record.Value)}},
					},
				}},
			},
		})
		return err
	})
	return mapError(fmt.Sprintf("failed to upsert record %s", record.Name), err)
}

// FindRecord returns the first record set named name.
func (c *Client) FindRecord(ctx context.Context, zoneID, name string) (*provisioning.Record, error) {
	sets, err := c.recordSets(ctx, zoneID, name)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("record %s: %w", name, provisioning.ErrNotFound)
	}
	set := sets[0]
	record := &provisioning.Record{
		Name: strings.TrimSuffix(aws.ToString(set.Name), "."),
		Type: string(set.Type),
		TTL:  aws.ToInt64(set.TTL),
	}
	if len(set.ResourceRecords) > 0 {
		record.Value = aws.ToString(set.ResourceRecords[0].Value)
	}
	return record, nil
}

// DeleteRecord deletes every record set named name. Route 53 only deletes
// a set whose contents match exactly, so the sets are read first.
func (c *Client) DeleteRecord(ctx context.Context, zoneID, name string) error {
	sets, err := c.recordSets(ctx, zoneID, name)
	if err != nil {
		return err
	}

	var changes []r53types.Change
	for _, set := range sets {
		changes = append(changes, r53types.Change{
			Action:            r53types.ChangeActionDelete,
			ResourceRecordSet: &set,
		})
	}
	if len(changes) == 0 {
		return fmt.Errorf("record %s: %w", name, provisioning.ErrNotFound)
	}

	err = c.remove(ctx, func(ctx context.Context) error {
		_, err := c.route53.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(zoneID),
			ChangeBatch:  &r53types.ChangeBatch{Changes: changes},
		})
		return err
	})
	if hasErrorCode(err, "InvalidChangeBatch") {
		// The set changed or vanished between listing and deleting.
		return fmt.Errorf("record %s: %w", name, errors.Join(provisioning.ErrNotFound, err))
	}
	return mapError(fmt.Sprintf("failed to delete record %s", name), err)
}

// recordSets returns the record sets named name. Listing starts at name in
// the zone's sort order, so only the first page can hold matches.
func (c *Client) recordSets(ctx context.Context, zoneID, name string) ([]r53types.ResourceRecordSet, error) {
	want := fqdn(name)
	out, err := c.route53.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(want),
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("failed to list records named %s", name), err)
	}
	var sets []r53types.ResourceRecordSet
	for _, set := range out.ResourceRecordSets {
		if strings.EqualFold(aws.ToString(set.Name), want) {
			sets = append(sets, set)
		}
	}
	return sets, nil
}

// fqdn returns name with a trailing dot, the form Route 53 reports.
func fqdn(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}
