// SPDX-License-Identifier: ISC

package fault_test

import (
	"testing"

	"github.com/shardpow/dsnode/fault"
)

var (
	ErrExistsOne   = fault.ExistsError("exists one")
	ErrExistsTwo   = fault.ExistsError("exists two")
	ErrInvalidOne  = fault.InvalidError("invalid one")
	ErrInvalidTwo  = fault.InvalidError("invalid two")
	ErrNotFoundOne = fault.NotFoundError("not found one")
	ErrNotFoundTwo = fault.NotFoundError("not found two")
	ErrProcessOne  = fault.ProcessError("process one")
	ErrProcessTwo  = fault.ProcessError("process two")
)

// test that various error kinds can be subclassed
func TestClassification(t *testing.T) {
	errorList := []struct {
		err      error
		exists   bool
		invalid  bool
		notFound bool
		process  bool
	}{
		{ErrExistsOne, true, false, false, false},
		{ErrExistsTwo, true, false, false, false},
		{ErrInvalidOne, false, true, false, false},
		{ErrInvalidTwo, false, true, false, false},
		{ErrNotFoundOne, false, false, true, false},
		{ErrNotFoundTwo, false, false, true, false},
		{ErrProcessOne, false, false, false, true},
		{ErrProcessTwo, false, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsErrExists(err) != e.exists {
			t.Errorf("%d: expected 'exists' == %v for err = %v", i, e.exists, err)
		}
		if fault.IsErrInvalid(err) != e.invalid {
			t.Errorf("%d: expected 'invalid' == %v for err = %v", i, e.invalid, err)
		}
		if fault.IsErrNotFound(err) != e.notFound {
			t.Errorf("%d: expected 'not found' == %v for err = %v", i, e.notFound, err)
		}
		if fault.IsErrProcess(err) != e.process {
			t.Errorf("%d: expected 'process' == %v for err = %v", i, e.process, err)
		}
	}
}

// real domain errors must classify correctly (guards against a typo'd constructor)
func TestDomainErrors(t *testing.T) {
	if !fault.IsErrInvalid(fault.ErrWrongDifficulty) {
		t.Error("ErrWrongDifficulty should be an InvalidError")
	}
	if !fault.IsErrNotFound(fault.ErrBlockNotFound) {
		t.Error("ErrBlockNotFound should be a NotFoundError")
	}
	if !fault.IsErrProcess(fault.ErrAlreadyInitialised) {
		t.Error("ErrAlreadyInitialised should be a ProcessError")
	}
}
