package terminal

import (
	"errors"
	"testing"

	"k8s.io/utils/exec"
	testingexec "k8s.io/utils/exec/testing"
)

func fakeTput(out string, err error) exec.Interface {
	cmd := &testingexec.FakeCmd{
		CombinedOutputScript: []testingexec.FakeAction{
			func() ([]byte, []byte, error) { return []byte(out), nil, err },
		},
	}
	return &testingexec.FakeExec{
		LookPathFunc: func(file string) (string, error) { return "/usr/bin/" + file, nil },
		CommandScript: []testingexec.FakeCommandAction{
			func(cmd0 string, args ...string) exec.Cmd { return cmd },
		},
	}
}

func TestIsColor(t *testing.T) {
	tests := []struct {
		out     string
		err     error
		wantErr bool
	}{
		{out: "256\n", wantErr: false},
		{out: "8", wantErr: false},
		{out: "2", wantErr: true},
		{out: "-1", wantErr: true},
		{out: "tput: unknown terminal", wantErr: true},
		{out: "", err: errors.New("exit status 1"), wantErr: true},
	}
	for i, tv := range tests {
		_, err := isColor(fakeTput(tv.out, tv.err))
		if (err != nil) != tv.wantErr {
			t.Fatalf("#%d: unexpected error %v (want error %v)", i, err, tv.wantErr)
		}
	}
}

func TestIsColorNoTput(t *testing.T) {
	fe := &testingexec.FakeExec{
		LookPathFunc: func(file string) (string, error) { return "", exec.ErrExecutableNotFound },
	}
	if _, err := isColor(fe); !errors.Is(err, exec.ErrExecutableNotFound) {
		t.Fatalf("unexpected error %v", err)
	}
}
