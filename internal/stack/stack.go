package stack

// Tag keys that link the compute fleet to the deployment group. The
// deployment orchestrator selects targets by exact match on these keys,
// so any instance carrying the same values becomes a deploy target.
const (
	TagApplicationName = "application-name"
	TagStage           = "stage"
)

// Stack is the full declaration of the infrastructure webfleet manages.
// It is built once from configuration and never mutated afterwards;
// changing anything means re-declaring and re-provisioning.
type Stack struct {
	Name           string
	Region         string
	Network        *Network
	SecurityGroup  *SecurityGroup
	InstanceRole   *Role
	Fleet          *Fleet
	ArtifactBucket string
	// SourceTokenSecret names the pre-provisioned secret holding the
	// source repository's access token. The token itself never enters
	// the declaration.
	SourceTokenSecret string
	Build             *BuildProject
	Pipeline          *Pipeline
	DeploymentGroup   *DeploymentGroup
}

// BuildProject declares the managed, ephemeral build environment the
// pipeline's Build stage runs in.
type BuildProject struct {
	Name        string
	Image       string
	ComputeType string
	ServiceRole *Role
}

// Network declares a VPC and its subnets.
type Network struct {
	Name    string
	CIDR    string
	Subnets []Subnet
}

// Subnet is one slice of the network's address space. Public subnets are
// directly internet-routable (route to an internet gateway, public IP on
// launch).
type Subnet struct {
	Name   string
	CIDR   string
	Zone   string // availability zone suffix, e.g. "a"
	Public bool
}

// SecurityGroup declares ingress rules scoped to the stack's network.
type SecurityGroup struct {
	Name        string
	Description string
	Ingress     []Rule
	OpenEgress  bool
}

// Rule is a single ingress permission.
type Rule struct {
	Protocol string // "tcp", "udp", "icmp"
	FromPort int
	ToPort   int
	Source   string // CIDR
}

// Role declares an IAM role assumable by a single service principal,
// with managed policies attached by name and optionally one inline
// policy document.
type Role struct {
	Name            string
	TrustPrincipal  string
	ManagedPolicies []string
	InlinePolicy    string // JSON policy document
}

// Fleet declares Count identically configured instances. Identity of
// configuration is by construction: there is one size, one image, one
// tag set and one bootstrap script for the whole fleet.
type Fleet struct {
	Name         string
	Count        int
	InstanceType string
	// ImageParameter is the public SSM parameter naming the current
	// stable machine image for the platform.
	ImageParameter string
	Tags           map[string]string
	// UserData is the bootstrap script text, injected verbatim as
	// instance startup data and executed once at first boot.
	UserData string
}

// Pipeline declares the delivery pipeline: ordered stages of ordered
// actions, wired together by named artifacts.
type Pipeline struct {
	Name        string
	ServiceRole *Role
	Stages      []Stage
}

type Stage struct {
	Name    string
	Actions []Action
}

// Action consumes zero or more named artifacts and produces zero or
// more. An input must have been produced by an action in an earlier
// stage.
type Action struct {
	Name     string
	Category string // "Source", "Build", "Deploy"
	Owner    string
	Provider string
	Version  string
	Config   map[string]string
	Inputs   []string
	Outputs  []string
}

// DeploymentGroup targets the fleet by tag match. It references the
// fleet declaration by name rather than carrying its own selector; the
// tag filters handed to the platform are derived via Selector, so the
// selector cannot drift from the tags actually applied to the fleet.
type DeploymentGroup struct {
	Name        string
	Application string
	Fleet       string
	ServiceRole *Role
}

// Selector returns the tag filters the deployment group presents to the
// deployment orchestrator: the referenced fleet's exact tag set.
func (s *Stack) Selector() map[string]string {
	if s.Fleet == nil || s.DeploymentGroup == nil || s.DeploymentGroup.Fleet != s.Fleet.Name {
		return nil
	}
	sel := make(map[string]string, len(s.Fleet.Tags))
	for k, v := range s.Fleet.Tags {
		sel[k] = v
	}
	return sel
}
