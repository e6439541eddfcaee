package handlers

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"gorm.io/datatypes"

	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/jobs/runtime"
)

func TestRegisterAllCoversEveryType(t *testing.T) {
	reg := runtime.NewRegistry()
	if err := RegisterAll(reg, Deps{}); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	want := Types()
	sort.Strings(want)
	if got := reg.Types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("types=%v want=%v", got, want)
	}
	if err := RegisterAll(reg, Deps{}); !errors.Is(err, runtime.ErrDuplicateHandler) {
		t.Fatalf("second RegisterAll: %v", err)
	}
}

func TestRemindersRefreshNeedsPlant(t *testing.T) {
	reg := runtime.NewRegistry()
	if err := RegisterAll(reg, Deps{}); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	h, ok := reg.Get(TypeRemindersRefresh)
	if !ok {
		t.Fatalf("no handler for %s", TypeRemindersRefresh)
	}
	job := &types.JobRun{
		JobType: TypeRemindersRefresh,
		Payload: datatypes.JSON([]byte(`{"plant_id":"not-a-uuid"}`)),
	}
	jc := runtime.NewContext(context.Background(), nil, job, nil, nil)
	if err := h.Run(jc); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
}
