package scanner

import (
	"github.com/avguard/avscan/internal/quarantine"
)

// Remediator neutralizes an infected file and reports what it did.
type Remediator interface {
	Remediate(path string) (Action, error)
}

type quarantineRemediator struct {
	jail *quarantine.Jail
}

// QuarantineWith moves infected files into jail.
func QuarantineWith(jail *quarantine.Jail) Remediator {
	return quarantineRemediator{jail: jail}
}

func (q quarantineRemediator) Remediate(path string) (Action, error) {
	if _, err := q.jail.Quarantine(path); err != nil {
		return ActionNone, err
	}
	return ActionQuarantined, nil
}

type deleteRemediator struct{}

// DeleteInfected removes infected files outright.
func DeleteInfected() Remediator {
	return deleteRemediator{}
}

func (deleteRemediator) Remediate(path string) (Action, error) {
	if err := quarantine.Delete(path); err != nil {
		return ActionNone, err
	}
	return ActionDeleted, nil
}
