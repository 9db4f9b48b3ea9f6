package misc

import "sync"

// FaultPolicy defines how the platform reacts when a lane faults. The
// simulator itself only reports faults; this mode decides whether the run
// keeps stepping with the faulting lane retired or stops at the first report.
type FaultPolicy string

const (
	// FaultPolicyContinue retires the faulting lane and keeps the run going.
	FaultPolicyContinue FaultPolicy = "continue"
	// FaultPolicyHalt stops the whole simulation at the first reported fault.
	FaultPolicyHalt FaultPolicy = "halt"
)

// DefaultFaultPolicy returns the policy used when no explicit selection is made.
func DefaultFaultPolicy() FaultPolicy {
	return FaultPolicyContinue
}

// FaultPolicyFromString converts an arbitrary string into a FaultPolicy. When
// the provided value is unknown the bool return will be false.
func FaultPolicyFromString(value string) (FaultPolicy, bool) {
	switch value {
	case string(FaultPolicyContinue):
		return FaultPolicyContinue, true
	case string(FaultPolicyHalt):
		return FaultPolicyHalt, true
	default:
		return "", false
	}
}

var (
	runtimeFaultPolicy     = DefaultFaultPolicy()
	runtimeFaultPolicyLock sync.RWMutex
)

// SetRuntimeFaultPolicy updates the global runtime fault policy.
func SetRuntimeFaultPolicy(policy FaultPolicy) {
	runtimeFaultPolicyLock.Lock()
	defer runtimeFaultPolicyLock.Unlock()

	runtimeFaultPolicy = policy
}

// RuntimeFaultPolicy returns the currently configured fault policy.
func RuntimeFaultPolicy() FaultPolicy {
	runtimeFaultPolicyLock.RLock()
	defer runtimeFaultPolicyLock.RUnlock()

	return runtimeFaultPolicy
}
