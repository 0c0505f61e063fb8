package domain

import "testing"

func TestTransactionCashEffect(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want string
	}{
		{
			name: "buy debits gross plus fee",
			tx: Transaction{
				Type:      TransactionBuy,
				Quantity:  mustQuantity(t, "10"),
				UnitPrice: mustAmount(t, "100"),
				Fee:       mustAmount(t, "1"),
			},
			want: "-1001",
		},
		{
			name: "sell credits gross minus fee",
			tx: Transaction{
				Type:      TransactionSell,
				Quantity:  mustQuantity(t, "4"),
				UnitPrice: mustAmount(t, "120"),
				Fee:       mustAmount(t, "0.50"),
			},
			want: "479.5",
		},
		{
			name: "dividend credits payout minus fee",
			tx: Transaction{
				Type:      TransactionDividend,
				Quantity:  mustQuantity(t, "1"),
				UnitPrice: mustAmount(t, "25.40"),
			},
			want: "25.4",
		},
		{
			name: "fee debits flat charge",
			tx: Transaction{
				Type: TransactionFee,
				Fee:  mustAmount(t, "9.99"),
			},
			want: "-9.99",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tx.CashEffect().String(); got != tc.want {
				t.Errorf("CashEffect = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTransferCashEffect(t *testing.T) {
	deposit := Transfer{Type: TransferDeposit, Amount: mustAmount(t, "500")}
	if got := deposit.CashEffect().String(); got != "500" {
		t.Errorf("deposit CashEffect = %s, want 500", got)
	}

	withdrawal := Transfer{Type: TransferWithdrawal, Amount: mustAmount(t, "200")}
	if got := withdrawal.CashEffect().String(); got != "-200" {
		t.Errorf("withdrawal CashEffect = %s, want -200", got)
	}
}

func TestValidationResultReject(t *testing.T) {
	res := OK()
	if !res.Valid {
		t.Fatal("OK() should be valid")
	}

	res.Reject("quantity", "quantity must be positive")
	if res.Valid {
		t.Error("rejected result should be invalid")
	}
	if len(res.Errors) != 1 || res.Errors[0].Field != "quantity" {
		t.Errorf("errors = %+v, want one quantity error", res.Errors)
	}
}
