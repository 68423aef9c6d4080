package handlers

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/imamik/stackctl/internal/orchestration"
	"github.com/imamik/stackctl/internal/provisioning"
)

func printResult(w io.Writer, verb string, res *orchestration.Result) {
	action := verb
	if verb == "created" && !res.Created {
		action = "already exists"
	}
	fmt.Fprintf(w, "Environment %s %s\n", res.Environment, action)
	fmt.Fprintf(w, "  stack:  %s\n", res.StackName)
	fmt.Fprintf(w, "  url:    http://%s\n", res.Domain)
	fmt.Fprintf(w, "  state:  %s\n", res.State)
	printWarnings(w, res.Warnings)
}

func printWarnings(w io.Writer, warnings []*provisioning.TeardownWarning) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "  warnings (%d):\n", len(warnings))
	for _, warning := range warnings {
		fmt.Fprintf(w, "    - %s\n", warning)
	}
}

func printStatus(w io.Writer, st *orchestration.Status) {
	fmt.Fprintf(w, "Environment: %s\n", st.Environment)
	fmt.Fprintf(w, "  stack:     %s\n", st.StackName)
	fmt.Fprintf(w, "  state:     %s\n", st.State)
	if st.Domain != "" {
		fmt.Fprintf(w, "  url:       http://%s\n", st.Domain)
	}
	if st.Revision != "" {
		fmt.Fprintf(w, "  revision:  %s\n", st.Revision)
	}
	if len(st.InstanceIDs) > 0 {
		fmt.Fprintf(w, "  instances: %s\n", strings.Join(st.InstanceIDs, ", "))
	}
	if st.LoadBalancer != "" {
		fmt.Fprintf(w, "  balancer:  %s\n", st.LoadBalancer)
	}
	if !st.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "  expires:   %s\n", st.ExpiresAt.UTC().Format(time.RFC3339))
	}
}

func printProject(w io.Writer, desc *orchestration.ProjectDescription) {
	fmt.Fprintf(w, "Project: %s\n", desc.ProjectID)
	if desc.Scaffold != nil {
		fmt.Fprintf(w, "  subnet: %s (%s)\n", desc.Scaffold.SubnetID, desc.Scaffold.CIDR)
		fmt.Fprintf(w, "  acl:    %s\n", desc.Scaffold.ACLID)
	}
	if len(desc.Environments) == 0 {
		fmt.Fprintln(w, "  no environments")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  ENVIRONMENT\tSTATE\tREVISION\tURL")
	for _, st := range desc.Environments {
		url := "-"
		if st.Domain != "" {
			url = "http://" + st.Domain
		}
		revision := st.Revision
		if revision == "" {
			revision = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", st.Environment.QualifiedName(), st.State, revision, url)
	}
	_ = tw.Flush()
}
