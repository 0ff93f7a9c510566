package secure

import (
	"errors"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(`{"order_id":"MGR-1001","status":"NEW"}`),
		[]byte(""),
		[]byte("a"),
		[]byte("0123456789abcdef"), // 正好一个块
		make([]byte, 1024),
	}

	for _, plain := range cases {
		envelope, err := Encode(plain, "migros-shared-secret")
		if err != nil {
			t.Fatalf("加密失败: %v", err)
		}

		got, err := Decode(envelope, "migros-shared-secret")
		if err != nil {
			t.Fatalf("解密失败: %v", err)
		}
		if string(got) != string(plain) {
			t.Errorf("往返结果不一致: got %q, want %q", got, plain)
		}
	}
}

func TestEncode_NonDeterministic(t *testing.T) {
	plain := []byte(`{"value":1}`)

	e1, err := Encode(plain, "key")
	if err != nil {
		t.Fatalf("加密失败: %v", err)
	}
	e2, err := Encode(plain, "key")
	if err != nil {
		t.Fatalf("加密失败: %v", err)
	}

	// IV 随机，两次加密的密文不应相同
	if e1 == e2 {
		t.Error("相同明文两次加密得到相同密文")
	}
}

func TestDecode_WrongKey(t *testing.T) {
	envelope, err := Encode([]byte(`{"order_id":1}`), "right-key")
	if err != nil {
		t.Fatalf("加密失败: %v", err)
	}

	_, err = Decode(envelope, "wrong-key")
	if err == nil {
		t.Fatal("错误密钥解密应当失败")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Errorf("err = %T, want *DecodeError", err)
	}
}

func TestDecode_Corrupted(t *testing.T) {
	for _, envelope := range []string{
		"not-base64!!!",
		"YWJj", // 长度不足一个块
		"",
	} {
		_, err := Decode(envelope, "key")
		if err == nil {
			t.Errorf("损坏密文 %q 应当解密失败", envelope)
		}
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("err = %T, want *DecodeError", err)
		}
	}
}
