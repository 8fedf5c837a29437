package stack

import (
	"errors"
	"fmt"
)

// Validate checks the declaration-time invariants of a stack. It runs
// before the first AWS call so a bad declaration never creates
// anything.
func Validate(s *Stack) error {
	var errs []error

	if s.Network == nil {
		errs = append(errs, fmt.Errorf("stack has no network"))
	} else {
		cidrs := make([]string, len(s.Network.Subnets))
		for i, sub := range s.Network.Subnets {
			cidrs[i] = sub.CIDR
		}
		if err := checkPartition(s.Network.CIDR, cidrs); err != nil {
			errs = append(errs, err)
		}
	}

	if s.SecurityGroup != nil {
		for _, r := range s.SecurityGroup.Ingress {
			if err := checkRule(r); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if s.Fleet == nil {
		errs = append(errs, fmt.Errorf("stack has no fleet"))
	} else {
		if s.Fleet.Count < 1 {
			errs = append(errs, fmt.Errorf("fleet %s declares %d instances", s.Fleet.Name, s.Fleet.Count))
		}
		for _, key := range []string{TagApplicationName, TagStage} {
			if s.Fleet.Tags[key] == "" {
				errs = append(errs, fmt.Errorf("fleet %s is missing the %s tag", s.Fleet.Name, key))
			}
		}
	}

	if err := checkTargeting(s); err != nil {
		errs = append(errs, err)
	}

	if s.Pipeline == nil {
		errs = append(errs, fmt.Errorf("stack has no pipeline"))
	} else if err := checkPipeline(s.Pipeline); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func checkRule(r Rule) error {
	switch r.Protocol {
	case "tcp", "udp", "icmp":
	default:
		return fmt.Errorf("ingress rule: unknown protocol %q", r.Protocol)
	}
	if r.FromPort < 0 || r.ToPort > 65535 || r.FromPort > r.ToPort {
		return fmt.Errorf("ingress rule: invalid port range %d-%d", r.FromPort, r.ToPort)
	}
	if _, err := parsePrefix(r.Source); err != nil {
		return fmt.Errorf("ingress rule: %w", err)
	}
	return nil
}

// checkTargeting verifies that the deployment group's derived selector
// matches the fleet's tag set exactly. Drift here means zero deploy
// targets at deploy time, so it is rejected up front.
func checkTargeting(s *Stack) error {
	if s.DeploymentGroup == nil {
		return fmt.Errorf("stack has no deployment group")
	}
	if s.Fleet == nil {
		return nil
	}
	if s.DeploymentGroup.Fleet != s.Fleet.Name {
		return fmt.Errorf("deployment group %s references unknown fleet %q", s.DeploymentGroup.Name, s.DeploymentGroup.Fleet)
	}
	sel := s.Selector()
	if len(sel) != len(s.Fleet.Tags) {
		return fmt.Errorf("deployment group selector does not match fleet tags")
	}
	for k, v := range s.Fleet.Tags {
		if sel[k] != v {
			return fmt.Errorf("deployment group selector does not match fleet tag %s", k)
		}
	}
	return nil
}

// checkPipeline verifies stage order and artifact wiring: the stages
// are exactly Source, Build, Deploy, and every action input was
// produced by an action in an earlier stage.
func checkPipeline(p *Pipeline) error {
	want := []string{StageSource, StageBuild, StageDeploy}
	if len(p.Stages) != len(want) {
		return fmt.Errorf("pipeline %s has %d stages, want %d", p.Name, len(p.Stages), len(want))
	}
	for i, name := range want {
		if p.Stages[i].Name != name {
			return fmt.Errorf("pipeline %s: stage %d is %q, want %q", p.Name, i, p.Stages[i].Name, name)
		}
	}

	produced := map[string]bool{}
	for _, stage := range p.Stages {
		if len(stage.Actions) == 0 {
			return fmt.Errorf("pipeline %s: stage %s has no actions", p.Name, stage.Name)
		}
		for _, action := range stage.Actions {
			for _, in := range action.Inputs {
				if !produced[in] {
					return fmt.Errorf("pipeline %s: action %s consumes artifact %q not produced by an earlier stage", p.Name, action.Name, in)
				}
			}
		}
		// Outputs become visible to later stages only.
		for _, action := range stage.Actions {
			for _, out := range action.Outputs {
				produced[out] = true
			}
		}
	}
	return nil
}
