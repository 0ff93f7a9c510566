package platform

import (
	"testing"

	"yemek_sync_v1_202608/internal/model"
)

func TestToExternal_AllPlatformsCoverFullTaxonomy(t *testing.T) {
	// 每个平台对每个内部状态都必须有正向映射
	for _, p := range model.AllPlatforms() {
		for _, s := range model.AllOrderStatuses() {
			if _, ok := ToExternal(p, s); !ok {
				t.Errorf("平台 %s 缺少内部状态 %s 的正向映射", p, s)
			}
		}
	}
}

func TestRoundTrip_AlwaysLandsInTaxonomy(t *testing.T) {
	// 往返允许丢精度，但结果必须仍是合法内部状态
	for _, p := range model.AllPlatforms() {
		for _, s := range model.AllOrderStatuses() {
			token, ok := ToExternal(p, s)
			if !ok {
				t.Fatalf("平台 %s 状态 %s 无正向映射", p, s)
			}
			back, ok := ToInternal(p, token)
			if !ok {
				t.Errorf("平台 %s token %s 无反向映射", p, token)
				continue
			}
			if !model.IsValidOrderStatus(back) {
				t.Errorf("平台 %s 往返得到非法状态 %s", p, back)
			}
		}
	}
}

func TestToInternal_MigrosCollapsedConfirmed(t *testing.T) {
	// migros 把 pending/confirmed 压成 CONFIRMED，反向规范取 confirmed
	got, ok := ToInternal(model.PlatformMigros, "CONFIRMED")
	if !ok {
		t.Fatal("CONFIRMED 应当有反向映射")
	}
	if got != model.OrderStatusConfirmed {
		t.Errorf("ToInternal(migros, CONFIRMED) = %s, want %s", got, model.OrderStatusConfirmed)
	}
}

func TestToInternal_UnknownToken(t *testing.T) {
	if _, ok := ToInternal(model.PlatformMigros, "NEW_PENDING"); ok {
		t.Error("未知 token NEW_PENDING 不应有映射")
	}
	if _, ok := ToInternal("no-such-platform", "CONFIRMED"); ok {
		t.Error("未知平台不应有映射")
	}
}

func TestToExternal_UnknownStatus(t *testing.T) {
	if _, ok := ToExternal(model.PlatformGetir, "sleeping"); ok {
		t.Error("非法内部状态不应有映射")
	}
}
